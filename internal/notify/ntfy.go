// Package notify delivers push notifications via ntfy.sh topics.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/home-temperature-agent/internal/httpx"
)

// ErrUnavailable is returned after the transport exhausts its retries.
var ErrUnavailable = errors.New("notification transport unavailable")

// Ntfy publishes to a ntfy.sh topic. Retries with backoff and a circuit
// breaker are built in; a returned error means delivery gave up.
type Ntfy struct {
	topic   string
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNtfy creates the transport for a topic.
func NewNtfy(client *http.Client, topic string) *Ntfy {
	return &Ntfy{
		topic:   topic,
		baseURL: "https://ntfy.sh",
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("ntfy"),
	}
}

// Send publishes one notification. priority follows ntfy semantics
// (low, default, high, urgent).
func (n *Ntfy) Send(ctx context.Context, title, message, priority string) error {
	if n.topic == "" {
		return fmt.Errorf("%w: no topic configured", ErrUnavailable)
	}
	if priority == "" {
		priority = "default"
	}

	body := []byte(message)
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s", n.baseURL, n.topic), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Title", title)
		req.Header.Set("Priority", priority)
		return req, nil
	}

	resp, err := httpx.Do(ctx, n.httpCfg, n.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}
