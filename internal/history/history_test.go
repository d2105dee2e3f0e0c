package history

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

var channels = sensor.ChannelMap{
	{Channel: "indoor", Room: "Kitchen"},
	{Channel: "temp_and_humidity_ch1", Room: "Attic"},
	{Channel: "outdoor", Room: "Outdoor"},
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestColdestComparesLatestReadings(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(now))

	a.Record(sensor.Reading{Room: "Kitchen", TempF: 68.0, ObservedAt: now})
	a.Record(sensor.Reading{Room: "Attic", TempF: 55.9, ObservedAt: now})
	a.Record(sensor.Reading{Room: "Outdoor", TempF: 20.0, ObservedAt: now})

	coldest, ok := a.Coldest()
	if !ok {
		t.Fatal("expected a coldest room")
	}
	// Outdoor is colder but excluded from the comparison.
	if coldest.Room != "Attic" || coldest.TempF != 55.9 {
		t.Errorf("coldest: got %s/%.1f, want Attic/55.9", coldest.Room, coldest.TempF)
	}

	warmest, ok := a.Warmest()
	if !ok {
		t.Fatal("expected a warmest room")
	}
	if warmest.Room != "Kitchen" {
		t.Errorf("warmest: got %s, want Kitchen", warmest.Room)
	}
}

// On an exact tie the first-configured room wins, every time.
func TestColdestTieBrokenByChannelOrder(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(now))

	a.Record(sensor.Reading{Room: "Attic", TempF: 60.0, ObservedAt: now})
	a.Record(sensor.Reading{Room: "Kitchen", TempF: 60.0, ObservedAt: now})

	for i := 0; i < 5; i++ {
		coldest, _ := a.Coldest()
		if coldest.Room != "Kitchen" {
			t.Fatalf("tie break: got %s, want Kitchen (first configured)", coldest.Room)
		}
	}
}

// Readings only at t-25h and t-1h: the window must use only the t-1h one.
func TestWindow24hEvictsOldReadings(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(now))

	a.Record(sensor.Reading{Room: "Attic", TempF: 30.0, ObservedAt: now.Add(-25 * time.Hour)})
	a.Record(sensor.Reading{Room: "Attic", TempF: 52.5, ObservedAt: now.Add(-1 * time.Hour)})

	stats, err := a.Window24h("Attic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.High != 52.5 || stats.Low != 52.5 {
		t.Errorf("window: got high=%.1f low=%.1f, want both 52.5", stats.High, stats.Low)
	}
	if !stats.LowAt.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("LowAt: got %v, want %v", stats.LowAt, now.Add(-1*time.Hour))
	}
}

// The window is anchored at query time: advancing the clock evicts
// points a previous query still saw.
func TestWindow24hAnchoredAtQueryTime(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(base))

	a.Record(sensor.Reading{Room: "Kitchen", TempF: 40.0, ObservedAt: base.Add(-23 * time.Hour)})
	a.Record(sensor.Reading{Room: "Kitchen", TempF: 65.0, ObservedAt: base.Add(-1 * time.Hour)})

	stats, err := a.Window24h("Kitchen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Low != 40.0 {
		t.Errorf("before advancing: low=%.1f, want 40.0", stats.Low)
	}

	a.SetClock(fixedClock(base.Add(2 * time.Hour)))
	stats, err = a.Window24h("Kitchen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Low != 65.0 {
		t.Errorf("after advancing: low=%.1f, want 65.0 (old point evicted)", stats.Low)
	}
}

func TestWindow24hNoData(t *testing.T) {
	a := New(channels, "Outdoor")
	if _, err := a.Window24h("Attic"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

// A later write for the same instant replaces, never duplicates.
func TestRecordReplacesSameInstant(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(now))

	a.Record(sensor.Reading{Room: "Attic", TempF: 50.0, ObservedAt: now})
	a.Record(sensor.Reading{Room: "Attic", TempF: 51.0, ObservedAt: now})

	stats, err := a.Window24h("Attic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Low != 51.0 || stats.High != 51.0 {
		t.Errorf("expected single replaced reading 51.0, got low=%.1f high=%.1f", stats.Low, stats.High)
	}
}

func TestCurrentAllFollowsChannelOrder(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	a := New(channels, "Outdoor")
	a.SetClock(fixedClock(now))

	a.Record(sensor.Reading{Room: "Outdoor", TempF: 20.0, ObservedAt: now})
	a.Record(sensor.Reading{Room: "Kitchen", TempF: 68.0, ObservedAt: now})

	all := a.CurrentAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(all))
	}
	if all[0].Room != "Kitchen" || all[1].Room != "Outdoor" {
		t.Errorf("order: got [%s %s], want [Kitchen Outdoor]", all[0].Room, all[1].Room)
	}
}
