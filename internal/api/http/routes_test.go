package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/home-temperature-agent/internal/alert"
	"github.com/i474232898/home-temperature-agent/internal/history"
	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

type fakeNotifier struct{ sent int }

func (f *fakeNotifier) Send(ctx context.Context, title, message, priority string) error {
	f.sent++
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, Deps, *fakeNotifier) {
	t.Helper()

	channels := sensor.ChannelMap{
		{Channel: "indoor", Room: "Kitchen"},
		{Channel: "temp_and_humidity_ch1", Room: "Attic"},
	}

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	agg := history.New(channels, "")
	agg.SetClock(func() time.Time { return now })
	agg.Record(sensor.Reading{Room: "Kitchen", TempF: 68.0, ObservedAt: now})

	th, err := alert.LoadThresholds("", alert.Float(60.0), alert.Float(70.0))
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}

	ledger, err := alert.OpenLedger(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	notifier := &fakeNotifier{}

	deps := Deps{
		Channels:   channels,
		History:    agg,
		Thresholds: th,
		Dispatcher: alert.NewDispatcher(ledger, notifier),
	}

	app := fiber.New()
	RegisterRoutes(app, deps)
	return app, deps, notifier
}

func TestGetTemperaturesReportsMissingRooms(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/temperatures", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Temperatures []struct {
			Room         string  `json:"room"`
			TemperatureF float64 `json:"temperatureF"`
		} `json:"temperatures"`
		Missing []string `json:"missing"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Temperatures) != 1 || body.Temperatures[0].Room != "Kitchen" {
		t.Errorf("temperatures: got %+v", body.Temperatures)
	}
	if len(body.Missing) != 1 || body.Missing[0] != "Attic" {
		t.Errorf("missing: got %v, want [Attic]", body.Missing)
	}
}

func TestGetHistoryUnknownRoom(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/temperatures/history?room=Attic", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for room without data, got %d", resp.StatusCode)
	}

	// Missing room parameter is a 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/temperatures/history", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without room parameter, got %d", resp.StatusCode)
	}
}

func TestPutThresholdValidation(t *testing.T) {
	app, deps, _ := newTestApp(t)

	// Out-of-range threshold is rejected.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/thresholds/Attic", strings.NewReader(`{"lowF":-200}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range threshold, got %d", resp.StatusCode)
	}

	// Unknown room is a 404.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/thresholds/Garage", strings.NewReader(`{"lowF":50}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown room, got %d", resp.StatusCode)
	}

	// Valid update lands in the threshold table.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/thresholds/Attic", strings.NewReader(`{"lowF":45}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	freeze, _ := deps.Thresholds.Snapshot().Effective("Attic")
	if freeze == nil || *freeze != 45.0 {
		t.Errorf("threshold not applied: %v", freeze)
	}
}

func TestPostTestAlertAlwaysSends(t *testing.T) {
	app, _, notifier := newTestApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/test", strings.NewReader(`{"title":"Test","message":"test alert"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
	if notifier.sent != 2 {
		t.Errorf("explicit sends must never deduplicate: got %d sends", notifier.sent)
	}
}

func TestPostChatWithoutRuntime(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"how cold is the attic?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a configured runtime, got %d", resp.StatusCode)
	}
}
