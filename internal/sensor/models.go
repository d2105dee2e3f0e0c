package sensor

import (
	"time"
)

// Measurement is one raw value as reported by the station cloud API.
// Values arrive as strings; the unit flag tells us whether conversion
// to Fahrenheit is needed.
type Measurement struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Blob is the raw per-channel payload. The station reports more fields
// than temperature (humidity, battery); we only consume temperature.
type Blob struct {
	Temperature *Measurement `json:"temperature"`
}

// RawPayload maps provider channel keys (e.g. "indoor", "temp_and_humidity_ch1")
// to their raw sensor blobs. It exists only within one poll cycle.
type RawPayload map[string]Blob

// Reading is a normalized temperature observation for one room.
type Reading struct {
	Room       string    `json:"room"`
	TempF      float64   `json:"temperatureF"`
	ObservedAt time.Time `json:"observedAt"`
}

// ChannelEntry binds a hardware channel key to a user-facing room name.
type ChannelEntry struct {
	Channel string `json:"channel"`
	Room    string `json:"room"`
}

// ChannelMap is the configured channel-to-room table. Order is significant:
// it governs display order everywhere downstream, so the map is kept as an
// ordered slice rather than a Go map.
type ChannelMap []ChannelEntry

// Room returns the room name configured for a channel key.
func (m ChannelMap) Room(channel string) (string, bool) {
	for _, e := range m {
		if e.Channel == channel {
			return e.Room, true
		}
	}
	return "", false
}

// Rooms returns all configured room names in configuration order.
func (m ChannelMap) Rooms() []string {
	rooms := make([]string, 0, len(m))
	for _, e := range m {
		rooms = append(rooms, e.Room)
	}
	return rooms
}

// RoomIndex returns the position of a room in the configured ordering,
// or len(m) for rooms that are not configured.
func (m ChannelMap) RoomIndex(room string) int {
	for i, e := range m {
		if e.Room == room {
			return i
		}
	}
	return len(m)
}
