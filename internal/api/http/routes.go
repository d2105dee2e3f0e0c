package httpapi

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/home-temperature-agent/internal/agent"
	"github.com/i474232898/home-temperature-agent/internal/alert"
	"github.com/i474232898/home-temperature-agent/internal/history"
	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

var validate = validator.New()

// Deps are the capabilities the HTTP layer reads and writes.
type Deps struct {
	Channels   sensor.ChannelMap
	History    *history.Aggregator
	Thresholds *alert.Thresholds
	Dispatcher *alert.Dispatcher
	Registry   *agent.Registry
	Runtime    agent.Runtime
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/temperatures", deps.getTemperatures)
	v1.Get("/temperatures/history", deps.getHistory)
	v1.Get("/thresholds", deps.getThresholds)
	v1.Put("/thresholds/:room", deps.putThreshold)
	v1.Get("/alerts", deps.getAlerts)
	v1.Post("/alerts/test", deps.postTestAlert)
	v1.Post("/chat", deps.postChat)
}

type temperatureEntry struct {
	Room         string  `json:"room"`
	TemperatureF float64 `json:"temperatureF"`
}

func (d Deps) getTemperatures(c *fiber.Ctx) error {
	readings := d.History.CurrentAll()

	temps := make([]temperatureEntry, 0, len(readings))
	present := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		temps = append(temps, temperatureEntry{Room: r.Room, TemperatureF: r.TempF})
		present[r.Room] = struct{}{}
	}

	missing := make([]string, 0)
	for _, room := range d.Channels.Rooms() {
		if _, ok := present[room]; !ok {
			missing = append(missing, room)
		}
	}

	return c.JSON(fiber.Map{
		"temperatures": temps,
		"missing":      missing,
	})
}

func (d Deps) getHistory(c *fiber.Ctx) error {
	room := c.Query("room")
	if room == "" {
		return fiber.NewError(fiber.StatusBadRequest, "room query parameter is required")
	}

	stats, err := d.History.Window24h(room)
	if err != nil {
		if errors.Is(err, history.ErrNoData) {
			return fiber.NewError(fiber.StatusNotFound, "no temperature data for room in the last 24 hours")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read history")
	}

	return c.JSON(stats)
}

func (d Deps) getThresholds(c *fiber.Ctx) error {
	table := d.Thresholds.Snapshot()

	type effective struct {
		Room    string   `json:"room"`
		FreezeF *float64 `json:"freezeF,omitempty"`
		HeatF   *float64 `json:"heatF,omitempty"`
	}

	rooms := make([]effective, 0, len(d.Channels))
	for _, room := range d.Channels.Rooms() {
		freeze, heat := table.Effective(room)
		rooms = append(rooms, effective{Room: room, FreezeF: freeze, HeatF: heat})
	}

	return c.JSON(fiber.Map{
		"default_freeze_f": table.DefaultFreezeF,
		"default_heat_f":   table.DefaultHeatF,
		"rooms":            rooms,
	})
}

// thresholdBody carries a threshold override update. Both limits are
// optional but at least one must be present.
type thresholdBody struct {
	LowF  *float64 `json:"lowF" validate:"omitempty,gte=-50,lte=150"`
	HighF *float64 `json:"highF" validate:"omitempty,gte=-50,lte=150"`
}

func (d Deps) putThreshold(c *fiber.Ctx) error {
	room := c.Params("room")
	if d.Channels.RoomIndex(room) == len(d.Channels) {
		return fiber.NewError(fiber.StatusNotFound, "unknown room")
	}

	var body thresholdBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.LowF == nil && body.HighF == nil {
		return fiber.NewError(fiber.StatusBadRequest, "at least one of lowF or highF is required")
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := d.Thresholds.SetRoom(room, body.LowF, body.HighF); err != nil {
		if errors.Is(err, alert.ErrThresholdRange) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update thresholds")
	}

	freeze, heat := d.Thresholds.Snapshot().Effective(room)
	return c.JSON(fiber.Map{
		"room":    room,
		"freezeF": freeze,
		"heatF":   heat,
	})
}

type alertsQuery struct {
	Limit int    `validate:"gte=0,lte=1000"`
	Room  string
	Kind  string `validate:"omitempty,oneof=freeze heat"`
}

func (d Deps) getAlerts(c *fiber.Ctx) error {
	q := alertsQuery{
		Limit: c.QueryInt("limit", 20),
		Room:  c.Query("room"),
		Kind:  c.Query("kind"),
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	records := d.Dispatcher.History(q.Limit, alert.RecordFilter{
		Scope: q.Room,
		Kind:  alert.Kind(q.Kind),
	})
	return c.JSON(fiber.Map{
		"alerts": records,
		"count":  len(records),
	})
}

type testAlertBody struct {
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// postTestAlert sends immediately via the dedup-bypassing path; an
// explicit request always sends.
func (d Deps) postTestAlert(c *fiber.Ctx) error {
	var body testAlertBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sent, err := d.Dispatcher.SendNow(c.Context(), body.Title, body.Message, "default")
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "notification transport unavailable")
	}
	return c.JSON(fiber.Map{"sent": sent})
}

type chatBody struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" validate:"required"`
}

func (d Deps) postChat(c *fiber.Ctx) error {
	var body chatBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if d.Runtime == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "conversational agent is not configured")
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := d.Runtime.Invoke(c.Context(), sessionID, body.Message, d.Registry)
	if err != nil {
		// Agent failures never leak internals to the user and never
		// touch the poll loop's state.
		log.Printf("api: agent invocation failed: %v", err)
		reply = "Sorry, I couldn't complete that request right now."
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"reply":      reply,
	})
}
