package sensor

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"
)

var (
	// ErrUnknownUnit is returned when a measurement carries a unit flag we
	// do not recognize. The reading is rejected rather than assumed.
	ErrUnknownUnit = errors.New("unknown temperature unit")

	errNoValue = errors.New("measurement has no value")
)

// Normalize maps a raw multi-channel payload into per-room readings
// using the configured channel map.
//
// The returned readings follow the channel map's ordering, not payload
// arrival order. Channels present in the payload but absent from the map
// are skipped with a log line. Channels configured in the map but absent
// from the payload (sensor offline) are returned in missing, never
// fabricated as zero readings.
func Normalize(payload RawPayload, channels ChannelMap, observedAt time.Time) (readings []Reading, missing []string) {
	seen := make(map[string]struct{}, len(channels))

	for _, entry := range channels {
		seen[entry.Channel] = struct{}{}

		blob, ok := payload[entry.Channel]
		if !ok || blob.Temperature == nil {
			missing = append(missing, entry.Room)
			continue
		}

		tempF, err := toFahrenheit(*blob.Temperature)
		if err != nil {
			log.Printf("sensor: dropping reading for %q (channel %q): %v", entry.Room, entry.Channel, err)
			missing = append(missing, entry.Room)
			continue
		}

		readings = append(readings, Reading{
			Room:       entry.Room,
			TempF:      tempF,
			ObservedAt: observedAt,
		})
	}

	for channel := range payload {
		if _, ok := seen[channel]; !ok {
			log.Printf("sensor: channel %q has no configured room; skipping", channel)
		}
	}

	return readings, missing
}

// toFahrenheit parses a raw measurement and converts it to Fahrenheit.
// The station reports either the symbol form (℃/℉) or the bare letter.
func toFahrenheit(m Measurement) (float64, error) {
	if m.Value == "" {
		return 0, errNoValue
	}

	v, err := strconv.ParseFloat(m.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature value %q: %w", m.Value, err)
	}

	switch m.Unit {
	case "℉", "F":
		return round1(v), nil
	case "℃", "C":
		return round1(v*9/5 + 32), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, m.Unit)
	}
}

// round1 rounds to one decimal place, matching the station's own precision.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
