package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/home-temperature-agent/internal/httpx"
)

// ErrUnavailable covers remote memory-service failures. Callers surface
// it to the conversational user; it never affects the poll loop.
var ErrUnavailable = errors.New("memory service unavailable")

// RemoteStore talks to a managed semantic-memory service over HTTP.
// The service owns extraction and relevance ranking; we only store and
// search.
type RemoteStore struct {
	baseURL string
	apiKey  string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewRemoteStore creates the remote backend.
func NewRemoteStore(client *http.Client, baseURL, apiKey string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("memory"),
	}
}

// StoreFact sends the fact to the service.
func (s *RemoteStore) StoreFact(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.baseURL+"/facts", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}
		return req, nil
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// SearchFacts runs a semantic search on the service.
func (s *RemoteStore) SearchFacts(ctx context.Context, query string) ([]string, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/facts/search?q=%s", s.baseURL, url.QueryEscape(query))
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}
		return req, nil
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Facts []string `json:"facts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return payload.Facts, nil
}
