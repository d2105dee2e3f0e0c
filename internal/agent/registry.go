// Package agent exposes the monitoring core to an LLM tool-calling
// runtime: a registry of named, typed tool handlers plus an opaque
// runtime that decides when to call them.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when the runtime asks for a tool we never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one tool call. args is the runtime-provided JSON
// arguments object; the result is marshalled back to the runtime.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is one capability exposed to the runtime.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Spec is the wire shape of a tool handed to the runtime's tool-calling
// configuration.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Registry is the explicit tool table, built once at startup. No dynamic
// registration after that.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is a programming
// error and panics at startup rather than shadowing silently.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; ok {
		panic(fmt.Sprintf("agent: tool %q registered twice", t.Name))
	}
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = t
}

// Specs returns the tool specifications in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, Spec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return specs
}

// Call executes a named tool and marshals its result.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
