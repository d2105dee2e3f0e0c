package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/home-temperature-agent/internal/sensor"
	"github.com/i474232898/home-temperature-agent/internal/telemetry"
)

// Station channel ids accepted in SENSOR_CHANNELS, mapped to the cloud
// API's payload keys.
var channelKeys = buildChannelKeys()

func buildChannelKeys() map[string]string {
	keys := map[string]string{
		"Indoor":  "indoor",
		"Outdoor": "outdoor",
	}
	for i := 1; i <= 8; i++ {
		keys[fmt.Sprintf("Channel %d", i)] = fmt.Sprintf("temp_and_humidity_ch%d", i)
	}
	return keys
}

// AppConfig is the full service configuration, loaded from environment.
type AppConfig struct {
	// Station cloud credentials.
	EcowittAppKey string
	EcowittAPIKey string
	EcowittMAC    string

	// Push notification topic.
	NtfyTopic string

	// Location for forecasts. Either set directly or geocoded from
	// City/Country at load time.
	Latitude  float64
	Longitude float64

	// Channel-to-room table, in configured order. OutdoorRoom is the
	// room mapped from the Outdoor channel, excluded from
	// coldest/warmest comparisons; empty when not configured.
	Channels    sensor.ChannelMap
	OutdoorRoom string

	// Default thresholds in °F; per-room overrides live in the
	// preferences file and are managed at runtime.
	FreezeThresholdF float64
	HeatThresholdF   float64

	// Scheduling.
	PollInterval    time.Duration
	ForecastAt      string
	ForecastHorizon time.Duration

	// Persisted state locations.
	LedgerPath      string
	PreferencesPath string
	FactsPath       string

	// House-facts backend: "local" or "remote".
	MemoryBackend string
	MemoryURL     string
	MemoryAPIKey  string

	// LLM agent runtime.
	AgentURL    string
	AgentAPIKey string

	Port        string
	HTTPTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
// Per-entry problems (a malformed channel mapping) are logged and
// skipped; only structural problems fail the load.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EcowittAppKey: os.Getenv("ECOWITT_APPLICATION_KEY"),
		EcowittAPIKey: os.Getenv("ECOWITT_API_KEY"),
		EcowittMAC:    os.Getenv("ECOWITT_MAC"),
		NtfyTopic:     os.Getenv("NTFY_TOPIC"),
		MemoryBackend: getenvDefault("MEMORY_BACKEND", "local"),
		MemoryURL:     os.Getenv("MEMORY_URL"),
		MemoryAPIKey:  os.Getenv("MEMORY_API_KEY"),
		AgentURL:      os.Getenv("AGENT_URL"),
		AgentAPIKey:   os.Getenv("AGENT_API_KEY"),
		Port:          getenvDefault("PORT", "8080"),
		ForecastAt:    getenvDefault("FORECAST_AT", "20:00"),
	}

	var err error
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if min := time.Duration(telemetry.MinPollInterval) * time.Second; cfg.PollInterval < min {
		log.Printf("config: POLL_INTERVAL below provider minimum, using %s", min)
		cfg.PollInterval = min
	}
	if cfg.ForecastHorizon, err = getenvDuration("FORECAST_HORIZON", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.FreezeThresholdF = getenvFloat("FREEZE_THRESHOLD_F", 60.0)
	cfg.HeatThresholdF = getenvFloat("HEAT_THRESHOLD_F", 70.0)

	cfg.Channels, cfg.OutdoorRoom = parseChannels(getenvDefault("SENSOR_CHANNELS", "Indoor=Indoor,Outdoor=Outdoor"))
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("no valid sensor channels configured; set SENSOR_CHANNELS")
	}

	if err := cfg.resolveLocation(); err != nil {
		return nil, err
	}

	dataDir := getenvDefault("DATA_DIR", ".")
	cfg.LedgerPath = filepath.Join(dataDir, "alert_history.json")
	cfg.PreferencesPath = filepath.Join(dataDir, "agent_preferences.json")
	cfg.FactsPath = filepath.Join(dataDir, "house_facts.json")

	return cfg, nil
}

// parseChannels reads the ordered SENSOR_CHANNELS table, e.g.
// "Indoor=Kitchen,Channel 1=Attic,Outdoor=Outside". Malformed or
// unknown entries are skipped with a log line; valid ones keep working.
func parseChannels(raw string) (sensor.ChannelMap, string) {
	var (
		channels    sensor.ChannelMap
		outdoorRoom string
	)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, room, ok := strings.Cut(part, "=")
		if !ok {
			log.Printf("config: malformed channel mapping %q, skipping", part)
			continue
		}
		id = strings.TrimSpace(id)
		room = strings.TrimSpace(room)

		key, known := channelKeys[id]
		if !known {
			log.Printf("config: unknown channel id %q, skipping", id)
			continue
		}
		if room == "" {
			log.Printf("config: channel %q has empty room name, skipping", id)
			continue
		}

		channels = append(channels, sensor.ChannelEntry{Channel: key, Room: room})
		if id == "Outdoor" {
			outdoorRoom = room
		}
	}

	return channels, outdoorRoom
}

// resolveLocation takes LATITUDE/LONGITUDE when set, otherwise geocodes
// LOCATION_CITY/LOCATION_COUNTRY.
func (c *AppConfig) resolveLocation() error {
	latStr, lonStr := os.Getenv("LATITUDE"), os.Getenv("LONGITUDE")
	if latStr != "" && lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return fmt.Errorf("invalid LATITUDE: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return fmt.Errorf("invalid LONGITUDE: %w", err)
		}
		c.Latitude, c.Longitude = lat, lon
		return nil
	}

	city := os.Getenv("LOCATION_CITY")
	if city == "" {
		return fmt.Errorf("set LATITUDE/LONGITUDE or LOCATION_CITY for forecasts")
	}

	geocoder.ApiKey = os.Getenv("GEOCODER_API_KEY")
	location, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: os.Getenv("LOCATION_COUNTRY"),
	})
	if err != nil {
		return fmt.Errorf("geocode %q: %w", city, err)
	}

	c.Latitude, c.Longitude = location.Latitude, location.Longitude
	log.Printf("config: geocoded %q to %.4f, %.4f", city, c.Latitude, c.Longitude)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
		log.Printf("config: invalid %s %q, using default %.1f", key, v, def)
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
