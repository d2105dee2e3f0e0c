package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/home-temperature-agent/internal/alert"
	"github.com/i474232898/home-temperature-agent/internal/forecast"
	"github.com/i474232898/home-temperature-agent/internal/history"
	"github.com/i474232898/home-temperature-agent/internal/memory"
	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

// Deps are the core capabilities the tools read and write.
type Deps struct {
	Channels   sensor.ChannelMap
	History    *history.Aggregator
	Thresholds *alert.Thresholds
	Dispatcher *alert.Dispatcher
	Forecast   forecast.Source
	Memory     memory.Store

	Lat, Lon float64
	Horizon  time.Duration
}

func emptySchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

// BuildRegistry wires every agent-visible capability into an explicit
// tool table. Called once at startup.
func BuildRegistry(deps Deps) *Registry {
	reg := NewRegistry()

	reg.Register(Tool{
		Name:        "get_current_temperatures",
		Description: "Current temperature (°F) for every room, in configured order, plus rooms whose sensor is offline.",
		InputSchema: emptySchema(),
		Handler:     deps.currentTemperatures,
	})

	reg.Register(Tool{
		Name:        "get_coldest_room",
		Description: "The indoor room with the lowest current temperature. Outdoor sensors are excluded.",
		InputSchema: emptySchema(),
		Handler:     deps.coldestRoom,
	})

	reg.Register(Tool{
		Name:        "get_warmest_room",
		Description: "The indoor room with the highest current temperature. Outdoor sensors are excluded.",
		InputSchema: emptySchema(),
		Handler:     deps.warmestRoom,
	})

	reg.Register(Tool{
		Name:        "get_24h_history",
		Description: "24-hour high and low (with timestamps) for each room.",
		InputSchema: emptySchema(),
		Handler:     deps.historySummary,
	})

	reg.Register(Tool{
		Name:        "get_sensor_info",
		Description: "Configured rooms, their hardware channels, and the default thresholds.",
		InputSchema: emptySchema(),
		Handler:     deps.sensorInfo,
	})

	reg.Register(Tool{
		Name:        "get_forecast",
		Description: "Upcoming forecast extremes for the home's location and whether they cross a threshold.",
		InputSchema: emptySchema(),
		Handler:     deps.forecastSummary,
	})

	reg.Register(Tool{
		Name:        "send_alert",
		Description: "Send a push notification immediately. Explicit requests are never deduplicated.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"title":{"type":"string"},"message":{"type":"string"},"priority":{"type":"string","enum":["low","default","high","urgent"]}},"required":["title","message"]}`),
		Handler:     deps.sendAlert,
	})

	reg.Register(Tool{
		Name:        "set_alert_threshold",
		Description: "Set a room's freeze (low) and/or heat (high) threshold in °F.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"room":{"type":"string"},"low":{"type":"number"},"high":{"type":"number"}},"required":["room"]}`),
		Handler:     deps.setThreshold,
	})

	reg.Register(Tool{
		Name:        "get_alert_preferences",
		Description: "Current default thresholds and per-room overrides.",
		InputSchema: emptySchema(),
		Handler:     deps.alertPreferences,
	})

	reg.Register(Tool{
		Name:        "get_alert_history",
		Description: "Recently sent alerts, newest first, optionally filtered by room or kind.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer"},"room":{"type":"string"},"kind":{"type":"string","enum":["freeze","heat"]}}}`),
		Handler:     deps.alertHistory,
	})

	reg.Register(Tool{
		Name:        "store_house_fact",
		Description: "Remember a fact about the house (construction, insulation, concerns).",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		Handler:     deps.storeFact,
	})

	reg.Register(Tool{
		Name:        "search_house_facts",
		Description: "Retrieve remembered house facts relevant to a query.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
		Handler:     deps.searchFacts,
	})

	return reg
}

type roomTemp struct {
	Room         string  `json:"room"`
	TemperatureF float64 `json:"temperatureF"`
}

func (d Deps) currentTemperatures(_ context.Context, _ json.RawMessage) (any, error) {
	readings := d.History.CurrentAll()

	temps := make([]roomTemp, 0, len(readings))
	present := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		temps = append(temps, roomTemp{Room: r.Room, TemperatureF: r.TempF})
		present[r.Room] = struct{}{}
	}

	var missing []string
	for _, room := range d.Channels.Rooms() {
		if _, ok := present[room]; !ok {
			missing = append(missing, room)
		}
	}

	return map[string]any{"temperatures": temps, "missing": missing}, nil
}

func (d Deps) coldestRoom(_ context.Context, _ json.RawMessage) (any, error) {
	r, ok := d.History.Coldest()
	if !ok {
		return nil, history.ErrNoData
	}
	return roomTemp{Room: r.Room, TemperatureF: r.TempF}, nil
}

func (d Deps) warmestRoom(_ context.Context, _ json.RawMessage) (any, error) {
	r, ok := d.History.Warmest()
	if !ok {
		return nil, history.ErrNoData
	}
	return roomTemp{Room: r.Room, TemperatureF: r.TempF}, nil
}

func (d Deps) historySummary(_ context.Context, _ json.RawMessage) (any, error) {
	highs := make(map[string]map[string]any)
	lows := make(map[string]map[string]any)

	for _, room := range d.Channels.Rooms() {
		stats, err := d.History.Window24h(room)
		if err != nil {
			continue
		}
		highs[room] = map[string]any{"temperature": stats.High, "timestamp": stats.HighAt}
		lows[room] = map[string]any{"temperature": stats.Low, "timestamp": stats.LowAt}
	}

	return map[string]any{"highs": highs, "lows": lows}, nil
}

func (d Deps) sensorInfo(_ context.Context, _ json.RawMessage) (any, error) {
	type entry struct {
		Room    string `json:"room"`
		Channel string `json:"channel"`
	}
	sensors := make([]entry, 0, len(d.Channels))
	for _, e := range d.Channels {
		sensors = append(sensors, entry{Room: e.Room, Channel: e.Channel})
	}

	table := d.Thresholds.Snapshot()
	return map[string]any{
		"sensors":          sensors,
		"freeze_threshold": table.DefaultFreezeF,
		"heat_threshold":   table.DefaultHeatF,
	}, nil
}

func (d Deps) forecastSummary(ctx context.Context, _ json.RawMessage) (any, error) {
	points, err := d.Forecast.Fetch(ctx, d.Lat, d.Lon)
	if err != nil {
		return nil, err
	}

	table := d.Thresholds.Snapshot()
	violations := alert.EvaluateForecast(points, table, d.Horizon, time.Now())

	now := time.Now()
	limit := now.Add(d.Horizon)
	var (
		haveAny   bool
		low, high forecast.Point
	)
	for _, p := range points {
		if !p.Time.After(now) || p.Time.After(limit) {
			continue
		}
		if !haveAny {
			low, high = p, p
			haveAny = true
			continue
		}
		if p.LowF < low.LowF {
			low = p
		}
		if p.HighF > high.HighF {
			high = p
		}
	}
	if !haveAny {
		return nil, forecast.ErrUnavailable
	}

	freezeWarning, heatWarning := false, false
	for _, v := range violations {
		switch v.Kind {
		case alert.KindFreeze:
			freezeWarning = true
		case alert.KindHeat:
			heatWarning = true
		}
	}

	return map[string]any{
		"forecast_low":       low.LowF,
		"forecast_low_time":  low.Time,
		"forecast_high":      high.HighF,
		"forecast_high_time": high.Time,
		"freeze_warning":     freezeWarning,
		"heat_warning":       heatWarning,
	}, nil
}

func (d Deps) sendAlert(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Title    string `json:"title"`
		Message  string `json:"message"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Title == "" || in.Message == "" {
		return nil, fmt.Errorf("title and message are required")
	}

	sent, err := d.Dispatcher.SendNow(ctx, in.Title, in.Message, in.Priority)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sent": sent}, nil
}

func (d Deps) setThreshold(_ context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Room string   `json:"room"`
		Low  *float64 `json:"low"`
		High *float64 `json:"high"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Low == nil && in.High == nil {
		return nil, fmt.Errorf("at least one of low or high is required")
	}

	if d.Channels.RoomIndex(in.Room) == len(d.Channels) {
		return nil, fmt.Errorf("unknown room %q; configured rooms: %v", in.Room, d.Channels.Rooms())
	}

	if err := d.Thresholds.SetRoom(in.Room, in.Low, in.High); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Updated thresholds for %s", in.Room)
	return map[string]any{"success": true, "message": msg}, nil
}

func (d Deps) alertPreferences(_ context.Context, _ json.RawMessage) (any, error) {
	table := d.Thresholds.Snapshot()
	return map[string]any{
		"default_freeze_threshold": table.DefaultFreezeF,
		"default_heat_threshold":   table.DefaultHeatF,
		"room_thresholds":          table.Rooms,
	}, nil
}

func (d Deps) alertHistory(_ context.Context, args json.RawMessage) (any, error) {
	in := struct {
		Limit int    `json:"limit"`
		Room  string `json:"room"`
		Kind  string `json:"kind"`
	}{Limit: 20}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	records := d.Dispatcher.History(in.Limit, alert.RecordFilter{
		Scope: in.Room,
		Kind:  alert.Kind(in.Kind),
	})
	return map[string]any{"alerts": records, "count": len(records)}, nil
}

func (d Deps) storeFact(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if err := d.Memory.StoreFact(ctx, in.Text); err != nil {
		return nil, err
	}
	return map[string]any{"stored": true}, nil
}

func (d Deps) searchFacts(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	facts, err := d.Memory.SearchFacts(ctx, in.Query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"facts": facts}, nil
}
