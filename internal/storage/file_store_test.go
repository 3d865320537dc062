package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daveeeeeehike/HikingUtility/internal/database"
	"github.com/daveeeeeehike/HikingUtility/internal/gpx"
	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/recorder"
	"github.com/daveeeeeehike/HikingUtility/internal/repository"
)

var _ recorder.Persister = (*FileStore)(nil)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	conn, err := database.OpenMigrated(database.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	store, err := NewFileStore(filepath.Join(t.TempDir(), "tracks"), repository.NewTrackRepository(conn), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

func testTrack(name string, n int) *models.Track {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tr := models.NewTrack(name, start)
	for i := 0; i < n; i++ {
		tr.AddPoint(models.NewPoint(47.0, 11.0+float64(i)*0.001, start.Add(time.Duration(i)*time.Minute)).WithElevation(1000 + float64(i)))
	}
	return tr
}

func TestPersistWritesSanitizedFile(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Persist(context.Background(), testTrack("Hike: Zugspitze/2024", 3), models.SourceRecorded)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if want := filepath.Join(store.Dir(), "Hike__Zugspitze_2024.gpx"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := gpx.Decode(data)
	if err != nil || decoded.PointCount() != 3 {
		t.Fatalf("stored file decodes to %v, %v", decoded, err)
	}

	entries, _ := os.ReadDir(store.Dir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSaveOverwritesSameName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, testTrack("ridge", 100), models.SourceCheckpoint)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Save(ctx, testTrack("ridge", 150), models.SourceRecorded)
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Errorf("overwrite created a second index row")
	}
	rows, total, err := store.List(models.StoredTrackFilter{})
	if err != nil || total != 1 {
		t.Fatalf("List() = %d, %v", total, err)
	}
	if rows[0].PointCount != 150 || rows[0].Source != models.SourceRecorded {
		t.Errorf("index row = %+v", rows[0])
	}

	_, tr, err := store.Load(second.ID)
	if err != nil || tr.PointCount() != 150 {
		t.Errorf("Load() = %v points, %v", tr, err)
	}
}

func TestSaveIndexesStats(t *testing.T) {
	store := newTestStore(t)
	tr := testTrack("stats", 4)

	stored, err := store.Save(context.Background(), tr, models.SourceImported)
	if err != nil {
		t.Fatal(err)
	}
	stats := tr.Stats()
	if stored.PointCount != 4 || stored.DistanceMeters != stats.DistanceMeters || stored.ElevationGainMeters != 3 {
		t.Errorf("stored = %+v", stored)
	}
	if stored.DurationMillis != (3 * time.Minute).Milliseconds() || stored.TrackCreatedAt != tr.CreatedAt {
		t.Errorf("stored = %+v", stored)
	}
	if stored.SizeBytes <= 0 {
		t.Error("size not recorded")
	}
}

func TestSaveHonorsCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Save(ctx, testTrack("late", 1), models.SourceRecorded); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	if _, total, _ := store.List(models.StoredTrackFilter{}); total != 0 {
		t.Error("canceled save was indexed")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.Save(context.Background(), testTrack("bye", 2), models.SourceRecorded)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(stored.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "bye.gpx")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
	if err := store.Delete(stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestReadRawMissingFile(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.Save(context.Background(), testTrack("vanish", 2), models.SourceRecorded)
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(store.Dir(), stored.FileName))

	if _, _, err := store.ReadRaw(stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRaw() error = %v, want ErrNotFound", err)
	}
}

func TestReindexPicksUpDroppedFiles(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Save(context.Background(), testTrack("known", 2), models.SourceRecorded); err != nil {
		t.Fatal(err)
	}

	data, err := gpx.Marshal(testTrack("dropped", 5))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "dropped.gpx"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(store.Dir(), "broken.gpx"), []byte(`<trkpt lat="x" lon="1">`), 0o644)

	added, err := store.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	rows, _, _ := store.List(models.StoredTrackFilter{Source: models.SourceImported})
	if len(rows) != 1 || rows[0].Name != "dropped" || rows[0].PointCount != 5 {
		t.Errorf("reindexed rows = %+v", rows)
	}

	if added, _ := store.Reindex(context.Background()); added != 0 {
		t.Errorf("second Reindex() added %d", added)
	}
}
