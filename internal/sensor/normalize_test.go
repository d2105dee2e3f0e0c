package sensor

import (
	"testing"
	"time"
)

func testChannelMap() ChannelMap {
	return ChannelMap{
		{Channel: "indoor", Room: "Kitchen"},
		{Channel: "temp_and_humidity_ch1", Room: "Attic"},
		{Channel: "temp_and_humidity_ch2", Room: "Basement"},
	}
}

func measurement(value, unit string) Blob {
	return Blob{Temperature: &Measurement{Value: value, Unit: unit}}
}

// Output ordering must follow the channel map regardless of how the
// payload keys happen to iterate.
func TestNormalizeOrderFollowsChannelMap(t *testing.T) {
	now := time.Now()
	payload := RawPayload{
		"temp_and_humidity_ch2": measurement("58.2", "℉"),
		"indoor":                measurement("68.0", "℉"),
		"temp_and_humidity_ch1": measurement("55.9", "℉"),
	}

	readings, missing := Normalize(payload, testChannelMap(), now)
	if len(missing) != 0 {
		t.Fatalf("unexpected missing rooms: %v", missing)
	}

	want := []string{"Kitchen", "Attic", "Basement"}
	if len(readings) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(readings))
	}
	for i, r := range readings {
		if r.Room != want[i] {
			t.Errorf("position %d: got room %q, want %q", i, r.Room, want[i])
		}
		if !r.ObservedAt.Equal(now) {
			t.Errorf("room %q: unexpected timestamp %v", r.Room, r.ObservedAt)
		}
	}
}

func TestNormalizeConvertsCelsius(t *testing.T) {
	payload := RawPayload{
		"indoor": measurement("20", "℃"),
	}

	readings, _ := Normalize(payload, testChannelMap(), time.Now())
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}
	if readings[0].TempF != 68.0 {
		t.Errorf("20C: got %.1fF, want 68.0F", readings[0].TempF)
	}
}

func TestNormalizeMissingChannelReported(t *testing.T) {
	payload := RawPayload{
		"indoor": measurement("68.0", "℉"),
	}

	readings, missing := Normalize(payload, testChannelMap(), time.Now())
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}
	if len(missing) != 2 || missing[0] != "Attic" || missing[1] != "Basement" {
		t.Errorf("missing rooms: got %v, want [Attic Basement]", missing)
	}
}

// A channel the household never named is skipped, not an error.
func TestNormalizeUnmappedChannelSkipped(t *testing.T) {
	payload := RawPayload{
		"indoor":                measurement("68.0", "℉"),
		"temp_and_humidity_ch7": measurement("40.0", "℉"),
	}

	readings, _ := Normalize(payload, ChannelMap{{Channel: "indoor", Room: "Kitchen"}}, time.Now())
	if len(readings) != 1 || readings[0].Room != "Kitchen" {
		t.Errorf("expected only Kitchen, got %+v", readings)
	}
}

func TestNormalizeRejectsUnknownUnit(t *testing.T) {
	payload := RawPayload{
		"indoor": measurement("68.0", "K"),
	}

	readings, missing := Normalize(payload, testChannelMap(), time.Now())
	if len(readings) != 0 {
		t.Errorf("expected no readings for unknown unit, got %+v", readings)
	}
	if len(missing) == 0 || missing[0] != "Kitchen" {
		t.Errorf("rejected reading should surface as missing, got %v", missing)
	}
}

func TestToFahrenheitRounds(t *testing.T) {
	got, err := toFahrenheit(Measurement{Value: "13.3", Unit: "℃"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 55.9 {
		t.Errorf("13.3C: got %.2f, want 55.9", got)
	}
}
