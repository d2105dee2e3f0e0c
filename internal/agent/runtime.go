package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/home-temperature-agent/internal/httpx"
)

// ErrRuntimeUnavailable covers LLM runtime failures. The conversational
// caller sees a friendly message; the poll loop is unaffected.
var ErrRuntimeUnavailable = errors.New("agent runtime unavailable")

// maxToolRounds bounds the tool-calling loop per user turn.
const maxToolRounds = 8

// Runtime is the opaque LLM capability: given a prompt and the tool
// registry, it produces a response, calling tools zero or more times.
type Runtime interface {
	Invoke(ctx context.Context, sessionID, prompt string, reg *Registry) (string, error)
}

// HTTPRuntime talks to a hosted agent runtime over HTTP. Each request
// carries the conversation turn and tool specs; the runtime either
// replies or asks for tool calls, which we execute and feed back.
type HTTPRuntime struct {
	baseURL string
	apiKey  string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPRuntime creates the HTTP-backed runtime client.
func NewHTTPRuntime(client *http.Client, baseURL, apiKey string) *HTTPRuntime {
	return &HTTPRuntime{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpCfg: httpx.DefaultConfig(client),
		circuit: httpx.NewBreaker("agent-runtime"),
	}
}

type runtimeRequest struct {
	SessionID string       `json:"session_id"`
	Prompt    string       `json:"prompt,omitempty"`
	Tools     []Spec       `json:"tools"`
	Results   []toolResult `json:"tool_results,omitempty"`
}

type toolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolResult struct {
	ID     string          `json:"id"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type runtimeResponse struct {
	Reply     string     `json:"reply,omitempty"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

// Invoke runs one user turn, executing requested tool calls until the
// runtime produces a final reply or the round budget runs out.
func (r *HTTPRuntime) Invoke(ctx context.Context, sessionID, prompt string, reg *Registry) (string, error) {
	req := runtimeRequest{
		SessionID: sessionID,
		Prompt:    prompt,
		Tools:     reg.Specs(),
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := r.post(ctx, req)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Reply, nil
		}

		results := make([]toolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			out, err := reg.Call(ctx, call.Name, call.Arguments)
			if err != nil {
				// Tool errors go back to the runtime so it can explain,
				// not abort the whole turn.
				log.Printf("agent: tool %s failed: %v", call.Name, err)
				results = append(results, toolResult{ID: call.ID, Error: err.Error()})
				continue
			}
			results = append(results, toolResult{ID: call.ID, Output: out})
		}

		req = runtimeRequest{
			SessionID: sessionID,
			Tools:     reg.Specs(),
			Results:   results,
		}
	}

	return "", fmt.Errorf("%w: tool-calling loop exceeded %d rounds", ErrRuntimeUnavailable, maxToolRounds)
}

func (r *HTTPRuntime) post(ctx context.Context, req runtimeRequest) (*runtimeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, r.baseURL+"/invoke", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
		}
		return httpReq, nil
	}

	httpResp, err := httpx.Do(ctx, r.httpCfg, r.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	defer httpResp.Body.Close()

	var resp runtimeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRuntimeUnavailable, err)
	}
	return &resp, nil
}
