package models

import (
	"math"
	"testing"
	"time"
)

func pointAt(lat, lon float64, ts int64) Point {
	return Point{Latitude: lat, Longitude: lon, Timestamp: ts}
}

func TestEmptyAndSinglePointTrack(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		points []Point
	}{
		{"empty", nil},
		{"single", []Point{pointAt(46, 7, 1000).WithElevation(1200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTrack("t", now)
			for _, p := range tt.points {
				tr.AddPoint(p)
			}
			if d := tr.TotalDistance(); d != 0 {
				t.Errorf("TotalDistance = %v, want 0", d)
			}
			if d := tr.Duration(); d != 0 {
				t.Errorf("Duration = %v, want 0", d)
			}
			if g := tr.ElevationGain(); g != 0 {
				t.Errorf("ElevationGain = %v, want 0", g)
			}
		})
	}
}

func TestTotalDistanceOneDegree(t *testing.T) {
	tr := NewTrack("equator", time.Now())
	tr.AddPoint(pointAt(0, 0, 0))
	tr.AddPoint(pointAt(0, 1, 60000))

	want := 111195.0
	if got := tr.TotalDistance(); math.Abs(got-want)/want > 0.01 {
		t.Fatalf("TotalDistance = %v, want about %v", got, want)
	}
}

func TestDuration(t *testing.T) {
	tr := NewTrack("d", time.Now())
	tr.AddPoint(pointAt(0, 0, 1_000))
	tr.AddPoint(pointAt(0, 0.001, 31_000))
	tr.AddPoint(pointAt(0, 0.002, 91_000))
	if got := tr.Duration(); got != 90*time.Second {
		t.Fatalf("Duration = %v, want 90s", got)
	}
}

func TestDurationNotGuardedForOutOfOrderTimes(t *testing.T) {
	tr := NewTrack("d", time.Now())
	tr.AddPoint(pointAt(0, 0, 5_000))
	tr.AddPoint(pointAt(0, 0, 1_000))
	if got := tr.Duration(); got != -4*time.Second {
		t.Fatalf("Duration = %v, want -4s", got)
	}
}

func TestElevationGainOnlyPositiveDeltas(t *testing.T) {
	tr := NewTrack("e", time.Now())
	for i, ele := range []float64{10, 15, 12, 20} {
		tr.AddPoint(pointAt(46, 7+float64(i)*0.001, int64(i)*1000).WithElevation(ele))
	}
	if got := tr.ElevationGain(); got != 13 {
		t.Fatalf("ElevationGain = %v, want 13", got)
	}
}

func TestElevationGainTreatsUnknownAsZero(t *testing.T) {
	tr := NewTrack("e", time.Now())
	tr.AddPoint(pointAt(46, 7, 0).WithElevation(100))
	tr.AddPoint(pointAt(46, 7.001, 1000)) // unknown counts as 0
	tr.AddPoint(pointAt(46, 7.002, 2000).WithElevation(50))
	if got := tr.ElevationGain(); got != 50 {
		t.Fatalf("ElevationGain = %v, want 50", got)
	}
}

func TestNewTrackDefaultName(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 30, 15, 0, time.UTC)
	tr := NewTrack("", now)
	if tr.Name != "Track_20250601_083015" {
		t.Fatalf("Name = %q", tr.Name)
	}
	if tr.CreatedAt != now.UnixMilli() {
		t.Fatalf("CreatedAt = %d", tr.CreatedAt)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := NewTrack("c", time.Now())
	tr.AddPoint(pointAt(1, 1, 0).WithElevation(5))

	c := tr.Clone()
	*c.Points[0].Elevation = 99
	c.Points[0].Latitude = 2
	c.AddPoint(pointAt(3, 3, 1))

	if tr.PointCount() != 1 || tr.Points[0].Latitude != 1 || *tr.Points[0].Elevation != 5 {
		t.Fatalf("clone mutated original: %+v", tr.Points)
	}
}

func TestStats(t *testing.T) {
	tr := NewTrack("s", time.Now())
	tr.AddPoint(pointAt(0, 0, 0).WithElevation(10))
	tr.AddPoint(pointAt(0, 1, int64(time.Hour/time.Millisecond)).WithElevation(30))

	s := tr.Stats()
	if s.PointCount != 2 || s.DurationMillis != 3_600_000 || s.ElevationGainMeters != 20 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	wantMph := s.DistanceMeters * 0.000621371
	if math.Abs(s.AverageSpeedMph-wantMph) > 1e-9 {
		t.Fatalf("AverageSpeedMph = %v, want %v", s.AverageSpeedMph, wantMph)
	}
	if math.Abs(s.PaceMinPerMile-60/wantMph) > 1e-9 {
		t.Fatalf("PaceMinPerMile = %v, want %v", s.PaceMinPerMile, 60/wantMph)
	}
	if s.Bounds == nil || s.Bounds.MaxLon != 1 {
		t.Fatalf("unexpected bounds: %+v", s.Bounds)
	}
	if s.Center == nil || math.Abs(s.Center.Lat) > 1e-9 || math.Abs(s.Center.Lon-0.5) > 1e-9 {
		t.Fatalf("unexpected center: %+v", s.Center)
	}
}

func TestPathDistanceMatchesTrackDistance(t *testing.T) {
	tr := NewTrack("p", time.Now())
	tr.AddPoint(pointAt(0, 0, 0))
	tr.AddPoint(pointAt(0, 0.01, 1))
	tr.AddPoint(pointAt(0.01, 0.01, 2))

	got := PathDistance(tr.Points)
	if math.Abs(got-tr.TotalDistance()) > 1e-9 || got < 2000 {
		t.Fatalf("PathDistance = %v, TotalDistance = %v", got, tr.TotalDistance())
	}
	if PathDistance(tr.Points[:1]) != 0 || PathDistance(nil) != 0 {
		t.Fatal("short paths must have zero length")
	}
}

func TestSpeedAndPaceGuards(t *testing.T) {
	if SpeedMph(0, time.Hour) != 0 || SpeedMph(100, 0) != 0 {
		t.Fatalf("SpeedMph should be 0 on zero input")
	}
	if PaceMinPerMile(0, time.Hour) != 0 || PaceMinPerMile(100, 0) != 0 {
		t.Fatalf("PaceMinPerMile should be 0 on zero input")
	}
}

func TestFixToPoint(t *testing.T) {
	alt := 321.5
	f := Fix{Latitude: 1, Longitude: 2, Altitude: &alt, Accuracy: 4, Provider: ProviderGPS, Timestamp: 77}
	p := f.ToPoint()
	if p.Latitude != 1 || p.Longitude != 2 || p.Timestamp != 77 || !p.HasElevation() || *p.Elevation != 321.5 {
		t.Fatalf("unexpected point: %+v", p)
	}
	alt = 0
	if *p.Elevation != 321.5 {
		t.Fatalf("point shares altitude with fix")
	}
}

func TestSessionStateText(t *testing.T) {
	b, _ := SessionPaused.MarshalText()
	if string(b) != "paused" {
		t.Fatalf("MarshalText = %s", b)
	}

	var s SessionState
	if err := s.UnmarshalText([]byte("recording")); err != nil || s != SessionRecording {
		t.Fatalf("UnmarshalText = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("flying")); err == nil {
		t.Fatal("expected error for unknown state")
	}
}
