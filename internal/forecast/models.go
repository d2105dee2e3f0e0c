// Package forecast fetches hourly temperature forecasts for the
// configured location.
package forecast

import (
	"context"
	"time"
)

// Point is one forecasted interval. Hourly sources report a single
// temperature, in which case LowF and HighF are equal.
type Point struct {
	Time  time.Time `json:"time"`
	LowF  float64   `json:"lowF"`
	HighF float64   `json:"highF"`
}

// Source abstracts a forecast provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) ([]Point, error)
}
