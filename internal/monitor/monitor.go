// Package monitor drives the poll and forecast cycles: fetch, normalize,
// record, evaluate, and hand violations to the dispatcher.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/i474232898/home-temperature-agent/internal/alert"
	"github.com/i474232898/home-temperature-agent/internal/forecast"
	"github.com/i474232898/home-temperature-agent/internal/history"
	"github.com/i474232898/home-temperature-agent/internal/sensor"
	"github.com/i474232898/home-temperature-agent/internal/telemetry"
)

// TelemetrySource abstracts the station cloud client.
type TelemetrySource interface {
	FetchRealtime(ctx context.Context) (sensor.RawPayload, error)
}

// Config bundles the monitor's collaborators and settings.
type Config struct {
	Telemetry  TelemetrySource
	Forecast   forecast.Source
	Channels   sensor.ChannelMap
	History    *history.Aggregator
	Thresholds *alert.Thresholds
	Dispatcher *alert.Dispatcher

	Lat, Lon float64
	Horizon  time.Duration
	// Timeout bounds every cycle's outbound calls so the poll loop
	// never hangs indefinitely.
	Timeout time.Duration
}

// Monitor runs poll and forecast cycles. A single Monitor is driven by
// the scheduler; its cycles are the only writers of history state.
type Monitor struct {
	cfg Config
	now func() time.Time
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 24 * time.Hour
	}
	return &Monitor{cfg: cfg, now: time.Now}
}

// SetClock overrides the monitor's clock. Test hook.
func (m *Monitor) SetClock(now func() time.Time) { m.now = now }

// RunPollCycle fetches current readings, updates history, and reconciles
// threshold violations. A fetch failure skips the cycle entirely: no
// history write, no alert state change.
func (m *Monitor) RunPollCycle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	payload, err := m.cfg.Telemetry.FetchRealtime(ctx)
	if err != nil {
		if errors.Is(err, telemetry.ErrAuth) {
			// Operator intervention needed; keep retrying next cycle
			// rather than terminating a long-running monitor.
			log.Printf("monitor: authentication failed, check station credentials: %v", err)
		} else {
			log.Printf("monitor: telemetry fetch failed, skipping cycle: %v", err)
		}
		return err
	}

	readings, missing := sensor.Normalize(payload, m.cfg.Channels, m.now())
	if len(missing) > 0 {
		log.Printf("monitor: no reading for: %s", strings.Join(missing, ", "))
	}
	for _, r := range readings {
		m.cfg.History.Record(r)
	}

	table := m.cfg.Thresholds.Snapshot()
	violations := alert.Evaluate(readings, table)

	inViolation := make(map[string]struct{}, len(violations))
	for _, v := range violations {
		inViolation[v.StateID()] = struct{}{}
	}

	// Recovery first: rooms we have a reading for and that are no longer
	// in violation get their states closed. Rooms with no reading keep
	// their state; silence is not recovery.
	for _, r := range readings {
		freeze, heat := table.Effective(r.Room)
		if freeze != nil {
			if id := alert.StateID(r.Room, alert.KindFreeze); !contains(inViolation, id) {
				m.cfg.Dispatcher.Dismiss(id)
			}
		}
		if heat != nil {
			if id := alert.StateID(r.Room, alert.KindHeat); !contains(inViolation, id) {
				m.cfg.Dispatcher.Dismiss(id)
			}
		}
	}

	for _, v := range violations {
		title, body := m.formatObserved(v)
		sent, err := m.cfg.Dispatcher.Submit(ctx, v, title, body)
		if err != nil {
			log.Printf("monitor: dispatch failed for %s: %v", v.StateID(), err)
			continue
		}
		if sent {
			log.Printf("monitor: alert sent for %s (%.1f°F, threshold %.1f°F)", v.StateID(), v.Observed, v.Threshold)
		}
	}

	return nil
}

// RunForecastCycle fetches the hourly forecast and reconciles look-ahead
// violations for the outdoor scope.
func (m *Monitor) RunForecastCycle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	points, err := m.cfg.Forecast.Fetch(ctx, m.cfg.Lat, m.cfg.Lon)
	if err != nil {
		log.Printf("monitor: forecast fetch failed, skipping cycle: %v", err)
		return err
	}

	table := m.cfg.Thresholds.Snapshot()
	violations := alert.EvaluateForecast(points, table, m.cfg.Horizon, m.now())

	inViolation := make(map[string]struct{}, len(violations))
	for _, v := range violations {
		inViolation[v.StateID()] = struct{}{}
	}

	freeze, heat := table.Effective(alert.OutdoorScope)
	if freeze != nil {
		if id := alert.StateID(alert.OutdoorScope, alert.KindFreeze); !contains(inViolation, id) {
			m.cfg.Dispatcher.Dismiss(id)
		}
	}
	if heat != nil {
		if id := alert.StateID(alert.OutdoorScope, alert.KindHeat); !contains(inViolation, id) {
			m.cfg.Dispatcher.Dismiss(id)
		}
	}

	for _, v := range violations {
		title, body := m.formatForecast(v)
		sent, err := m.cfg.Dispatcher.Submit(ctx, v, title, body)
		if err != nil {
			log.Printf("monitor: dispatch failed for %s: %v", v.StateID(), err)
			continue
		}
		if sent {
			log.Printf("monitor: forecast alert sent for %s (%.1f°F at %s)", v.StateID(), v.Observed, v.At.Format(time.Kitchen))
		}
	}

	return nil
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// formatObserved builds the notification for a right-now violation:
// headline plus every room's current reading with its 24h extreme.
func (m *Monitor) formatObserved(v alert.Violation) (title, body string) {
	title = "Heat Warning"
	if v.Kind == alert.KindFreeze {
		title = "Freeze Warning"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is %.1f°F (threshold %.1f°F)", v.Scope, v.Observed, v.Threshold)
	b.WriteString("\n\nCurrent Temperatures:")
	for _, r := range m.cfg.History.CurrentAll() {
		fmt.Fprintf(&b, "\n%s: %.1f°F", r.Room, r.TempF)
		stats, err := m.cfg.History.Window24h(r.Room)
		if err != nil {
			continue
		}
		if v.Kind == alert.KindFreeze {
			fmt.Fprintf(&b, " (Low: %.1f°F @ %s)", stats.Low, clock(stats.LowAt))
		} else {
			fmt.Fprintf(&b, " (High: %.1f°F @ %s)", stats.High, clock(stats.HighAt))
		}
	}
	return title, b.String()
}

// formatForecast builds the look-ahead notification, e.g.
// "Forecast Low: 22.4°F @ Tue 3am" plus current temperatures.
func (m *Monitor) formatForecast(v alert.Violation) (title, body string) {
	title = "Heat Warning"
	kind := "High"
	if v.Kind == alert.KindFreeze {
		title = "Freeze Warning"
		kind = "Low"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Forecast %s: %.1f°F @ %s", kind, v.Observed, v.At.Format("Mon ")+clock(v.At))
	readings := m.cfg.History.CurrentAll()
	if len(readings) > 0 {
		b.WriteString("\n")
		for _, r := range readings {
			fmt.Fprintf(&b, "\n%s: %.1f°F", r.Room, r.TempF)
		}
	}
	return title, b.String()
}

// clock renders a time the way the notifications read: "3am", "3:05pm".
func clock(t time.Time) string {
	if t.Minute() == 0 {
		return t.Format("3pm")
	}
	return t.Format("3:04pm")
}
