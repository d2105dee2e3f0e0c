package config

import (
	"testing"
)

func TestParseChannelsPreservesOrder(t *testing.T) {
	channels, outdoor := parseChannels("Indoor=Kitchen,Channel 1=Attic,Outdoor=Outside")

	if len(channels) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(channels))
	}

	wantChannels := []string{"indoor", "temp_and_humidity_ch1", "outdoor"}
	wantRooms := []string{"Kitchen", "Attic", "Outside"}
	for i, e := range channels {
		if e.Channel != wantChannels[i] || e.Room != wantRooms[i] {
			t.Errorf("entry %d: got %s=%s, want %s=%s", i, e.Channel, e.Room, wantChannels[i], wantRooms[i])
		}
	}
	if outdoor != "Outside" {
		t.Errorf("outdoor room: got %q, want Outside", outdoor)
	}
}

// A bad entry is skipped; the valid ones keep working.
func TestParseChannelsSkipsMalformedEntries(t *testing.T) {
	channels, _ := parseChannels("Indoor=Kitchen,bogus,Channel 9=Nowhere,Channel 2=")

	if len(channels) != 1 {
		t.Fatalf("expected only the valid entry, got %d: %+v", len(channels), channels)
	}
	if channels[0].Room != "Kitchen" {
		t.Errorf("surviving entry: got %+v", channels[0])
	}
}

func TestParseChannelsNoOutdoor(t *testing.T) {
	channels, outdoor := parseChannels("Channel 1=Attic, Channel 2=Basement")
	if len(channels) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(channels))
	}
	if outdoor != "" {
		t.Errorf("expected empty outdoor room, got %q", outdoor)
	}
}
