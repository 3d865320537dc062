package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestOpenMigratedCreatesSchema(t *testing.T) {
	conn, err := OpenMigrated(MemoryPath)
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"tracks", "recording_sessions", "migrations"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracks.db")
	conn, err := OpenMigrated(path)
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer conn.Close()

	if err := NewMigrationManager(conn).RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}
}

func TestLoadMigrationsOrdersAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_later.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"002_first.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"notes.txt":     {Data: []byte("ignored")},
		"bad_name.sql":  {Data: []byte("SELECT 1;")},
	}

	conn, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	migrations, err := NewMigrationManagerFS(conn, files).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != 2 || migrations[1].Version != 10 {
		t.Fatalf("migrations = %+v", migrations)
	}
	if migrations[0].Name != "002_first" {
		t.Errorf("name = %q", migrations[0].Name)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	files := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); THIS IS NOT SQL;")},
	}

	conn, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := NewMigrationManagerFS(conn, files).RunMigrations(); err == nil {
		t.Fatal("RunMigrations() succeeded on invalid SQL")
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("broken migration was recorded")
	}
}

func TestConnectRedis(t *testing.T) {
	if ConnectRedis("", "") != nil {
		t.Error("expected nil client without address")
	}
	c := ConnectRedis("localhost:6379", "pw")
	if c == nil || c.Options().Password != "pw" {
		t.Fatal("client not configured")
	}
	c.Close()
}
