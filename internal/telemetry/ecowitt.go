// Package telemetry fetches current readings from the Ecowitt station
// cloud API.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/home-temperature-agent/internal/httpx"
	"github.com/i474232898/home-temperature-agent/internal/sensor"
)

var (
	// ErrAuth is returned when the cloud API rejects the credentials.
	// The poll loop logs it and keeps retrying; it never terminates.
	ErrAuth = errors.New("ecowitt authentication failed")
	// ErrRateLimited is returned when the provider throttles us.
	ErrRateLimited = httpx.ErrRateLimited
	// ErrUnavailable covers transient provider failures.
	ErrUnavailable = errors.New("ecowitt unavailable")
)

// MinPollInterval is the provider's minimum spacing between calls.
// The scheduler must not poll faster than this.
const MinPollInterval = 60 // seconds

// Client is an Ecowitt cloud API client with retry, backoff, and a
// circuit breaker around every call.
type Client struct {
	appKey  string
	apiKey  string
	mac     string
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates an Ecowitt cloud client.
func NewClient(client *http.Client, appKey, apiKey, mac string) *Client {
	return &Client{
		appKey:  appKey,
		apiKey:  apiKey,
		mac:     mac,
		baseURL: "https://api.ecowitt.net/api/v3",
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("ecowitt"),
	}
}

// apiEnvelope is the outer Ecowitt response. code 0 means success;
// non-zero codes carry the error in msg.
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchRealtime returns the station's current raw payload, keyed by
// provider channel (indoor, outdoor, temp_and_humidity_ch1..8).
func (c *Client) FetchRealtime(ctx context.Context) (sensor.RawPayload, error) {
	if c.appKey == "" || c.apiKey == "" || c.mac == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrAuth)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("application_key", c.appKey)
		values.Set("api_key", c.apiKey)
		values.Set("mac", c.mac)
		values.Set("call_back", "all")

		u := fmt.Sprintf("%s/device/real_time?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpx.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, httpx.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if envelope.Code != 0 {
		if isAuthError(envelope) {
			return nil, fmt.Errorf("%w: %s", ErrAuth, envelope.Msg)
		}
		return nil, fmt.Errorf("%w: api error %d: %s", ErrUnavailable, envelope.Code, envelope.Msg)
	}

	var payload sensor.RawPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrUnavailable, err)
	}
	return payload, nil
}

// Ecowitt signals credential problems through msg rather than distinct
// codes, so we match on the text.
func isAuthError(e apiEnvelope) bool {
	msg := strings.ToLower(e.Msg)
	return strings.Contains(msg, "key") || strings.Contains(msg, "auth") || strings.Contains(msg, "illegal")
}
