package tools

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Handler executes one tool invocation. The returned value is marshaled into
// the tool-result payload.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named, schema-described operation the model may invoke.
type Tool struct {
	Name        string
	Description string
	Parameters  any
	Handle      Handler
}

// Source is a set of invokable tools. The built-in Registry and the remote
// provider Proxy both satisfy it; the Dispatcher fans out across sources.
type Source interface {
	Specs(ctx context.Context) ([]openai.Tool, error)
	Handles(ctx context.Context, name string) bool
	Invoke(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Registry holds locally implemented tools in registration order.
type Registry struct {
	order  []string
	byName map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handle == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	if _, exists := r.byName[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.order = append(r.order, t.Name)
	r.byName[t.Name] = t
	return nil
}

func (r *Registry) Specs(ctx context.Context) ([]openai.Tool, error) {
	_ = ctx

	out := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out, nil
}

func (r *Registry) Handles(ctx context.Context, name string) bool {
	_ = ctx

	_, ok := r.byName[name]
	return ok
}

func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %s", name)
	}
	return t.Handle(ctx, args)
}
