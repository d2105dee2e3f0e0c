package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/home-temperature-agent/internal/httpx"
)

// ErrUnavailable covers transient forecast provider failures.
var ErrUnavailable = errors.New("forecast unavailable")

// OpenMeteo fetches hourly temperature forecasts from Open-Meteo (no
// API key required).
type OpenMeteo struct {
	name    string
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteo creates the Open-Meteo source.
func NewOpenMeteo(client *http.Client) *OpenMeteo {
	return &OpenMeteo{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("openmeteo"),
	}
}

func (p *OpenMeteo) Name() string {
	return p.name
}

// Fetch returns the hourly forecast points for the location, already in
// Fahrenheit and ordered by time ascending.
func (p *OpenMeteo) Fetch(ctx context.Context, lat, lon float64) ([]Point, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("hourly", "temperature_2m")
		values.Set("temperature_unit", "fahrenheit")
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpx.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
		Hourly struct {
			Time          []string  `json:"time"`
			Temperature2M []float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if payload.Error {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, payload.Reason)
	}
	if len(payload.Hourly.Time) == 0 || len(payload.Hourly.Time) != len(payload.Hourly.Temperature2M) {
		return nil, fmt.Errorf("%w: empty or mismatched hourly series", ErrUnavailable)
	}

	points := make([]Point, 0, len(payload.Hourly.Time))
	for i, ts := range payload.Hourly.Time {
		// Open-Meteo returns local wall-clock times without a zone
		// offset, e.g. "2026-01-10T03:00".
		t, err := time.ParseInLocation("2006-01-02T15:04", ts, time.Local)
		if err != nil {
			continue
		}
		temp := payload.Hourly.Temperature2M[i]
		points = append(points, Point{Time: t, LowF: temp, HighF: temp})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no parseable forecast points", ErrUnavailable)
	}
	return points, nil
}
