package alert

import (
	"time"

	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

// Violation is one threshold crossing found by an evaluator.
type Violation struct {
	// Scope is the room name, or "outdoor" for forecast look-ahead.
	Scope     string    `json:"scope"`
	Kind      Kind      `json:"kind"`
	Threshold float64   `json:"threshold"`
	Observed  float64   `json:"observed"`
	// At is when the value was observed, or when a forecast extreme is
	// predicted to occur.
	At       time.Time `json:"at"`
	Forecast bool      `json:"forecast,omitempty"`
}

// StateID derives the deduplication key for a violation. It depends only
// on scope and kind, not the observed value, so a freeze alert stays
// "open" while the temperature hovers around the threshold.
func (v Violation) StateID() string {
	return StateID(v.Scope, v.Kind)
}

// StateID builds a violation-state identifier from scope and kind.
func StateID(scope string, kind Kind) string {
	return scope + "/" + string(kind)
}

// Evaluate checks every current reading against its effective thresholds.
// Boundary-equal readings count: users tune thresholds to the exact alarm
// value. Rooms with no threshold configured for a kind are excluded from
// that kind entirely. Pure; the dispatcher owns side effects.
func Evaluate(current []sensor.Reading, table *Table) []Violation {
	var out []Violation

	for _, r := range current {
		freeze, heat := table.Effective(r.Room)

		if freeze != nil && r.TempF <= *freeze {
			out = append(out, Violation{
				Scope:     r.Room,
				Kind:      KindFreeze,
				Threshold: *freeze,
				Observed:  r.TempF,
				At:        r.ObservedAt,
			})
		}
		if heat != nil && r.TempF >= *heat {
			out = append(out, Violation{
				Scope:     r.Room,
				Kind:      KindHeat,
				Threshold: *heat,
				Observed:  r.TempF,
				At:        r.ObservedAt,
			})
		}
	}

	return out
}
