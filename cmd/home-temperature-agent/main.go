package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/i474232898/home-temperature-agent/internal/agent"
	"github.com/i474232898/home-temperature-agent/internal/alert"
	httpapi "github.com/i474232898/home-temperature-agent/internal/api/http"
	"github.com/i474232898/home-temperature-agent/internal/config"
	"github.com/i474232898/home-temperature-agent/internal/forecast"
	"github.com/i474232898/home-temperature-agent/internal/history"
	"github.com/i474232898/home-temperature-agent/internal/memory"
	"github.com/i474232898/home-temperature-agent/internal/monitor"
	"github.com/i474232898/home-temperature-agent/internal/notify"
	"github.com/i474232898/home-temperature-agent/internal/scheduler"
	"github.com/i474232898/home-temperature-agent/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound calls (station cloud, forecast,
	// push notifications, agent runtime).
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persisted state: alert ledger and threshold preferences.
	ledger, err := alert.OpenLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("failed to open alert ledger: %v", err)
	}
	thresholds, err := alert.LoadThresholds(cfg.PreferencesPath,
		alert.Float(cfg.FreezeThresholdF), alert.Float(cfg.HeatThresholdF))
	if err != nil {
		log.Fatalf("failed to load threshold preferences: %v", err)
	}

	// Rolling 24h temperature history, keyed by room.
	hist := history.New(cfg.Channels, cfg.OutdoorRoom)

	// Alert dispatcher: dedups open violations, pushes over ntfy.
	notifier := notify.NewNtfy(httpClient, cfg.NtfyTopic)
	dispatcher := alert.NewDispatcher(ledger, notifier)

	// Outbound sources with resilience (backoff + circuit breaker).
	station := telemetry.NewClient(httpClient, cfg.EcowittAppKey, cfg.EcowittAPIKey, cfg.EcowittMAC)
	forecaster := forecast.NewOpenMeteo(httpClient)

	// House-facts backend for the agent's memory tools.
	var facts memory.Store
	switch cfg.MemoryBackend {
	case "remote":
		facts = memory.NewRemoteStore(httpClient, cfg.MemoryURL, cfg.MemoryAPIKey)
	default:
		facts, err = memory.NewLocalStore(cfg.FactsPath)
		if err != nil {
			log.Fatalf("failed to open house facts store: %v", err)
		}
	}

	// Monitoring cycles orchestrating fetch, evaluate, and dispatch.
	mon := monitor.New(monitor.Config{
		Telemetry:  station,
		Forecast:   forecaster,
		Channels:   cfg.Channels,
		History:    hist,
		Thresholds: thresholds,
		Dispatcher: dispatcher,
		Lat:        cfg.Latitude,
		Lon:        cfg.Longitude,
		Horizon:    cfg.ForecastHorizon,
		Timeout:    cfg.HTTPTimeout,
	})

	// Scheduler driving the poll loop and daily forecast check.
	sched := scheduler.New(mon, cfg.PollInterval, cfg.ForecastAt)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Agent tool registry plus the runtime the chat endpoint talks to.
	registry := agent.BuildRegistry(agent.Deps{
		Channels:   cfg.Channels,
		History:    hist,
		Thresholds: thresholds,
		Dispatcher: dispatcher,
		Forecast:   forecaster,
		Memory:     facts,
		Lat:        cfg.Latitude,
		Lon:        cfg.Longitude,
		Horizon:    cfg.ForecastHorizon,
	})
	var runtime agent.Runtime
	if cfg.AgentURL != "" {
		runtime = agent.NewHTTPRuntime(httpClient, cfg.AgentURL, cfg.AgentAPIKey)
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "home-temperature-agent",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "home-temperature-agent",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Channels:   cfg.Channels,
		History:    hist,
		Thresholds: thresholds,
		Dispatcher: dispatcher,
		Registry:   registry,
		Runtime:    runtime,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
