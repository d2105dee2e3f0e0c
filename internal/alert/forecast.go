package alert

import (
	"time"

	"github.com/i474232898/home-temperature-agent/internal/forecast"
)

// OutdoorScope is the scope used for forecast look-ahead violations.
// Per-room forecasts don't exist; only the outdoor location is evaluated.
const OutdoorScope = "outdoor"

// EvaluateForecast scans forecast points within the horizon for
// threshold crossings. Stale points (at or before now) are dropped.
// Only the single most extreme predicted value per kind is reported, so
// a cold night produces one look-ahead alert, not one per hourly sample.
func EvaluateForecast(points []forecast.Point, table *Table, horizon time.Duration, now time.Time) []Violation {
	freeze, heat := table.Effective(OutdoorScope)
	if freeze == nil && heat == nil {
		return nil
	}

	limit := now.Add(horizon)

	var (
		haveLow, haveHigh bool
		low, high         forecast.Point
	)
	for _, p := range points {
		if !p.Time.After(now) || p.Time.After(limit) {
			continue
		}
		if !haveLow || p.LowF < low.LowF {
			low = p
			haveLow = true
		}
		if !haveHigh || p.HighF > high.HighF {
			high = p
			haveHigh = true
		}
	}

	var out []Violation
	if freeze != nil && haveLow && low.LowF <= *freeze {
		out = append(out, Violation{
			Scope:     OutdoorScope,
			Kind:      KindFreeze,
			Threshold: *freeze,
			Observed:  low.LowF,
			At:        low.Time,
			Forecast:  true,
		})
	}
	if heat != nil && haveHigh && high.HighF >= *heat {
		out = append(out, Violation{
			Scope:     OutdoorScope,
			Kind:      KindHeat,
			Threshold: *heat,
			Observed:  high.HighF,
			At:        high.Time,
			Forecast:  true,
		})
	}
	return out
}
