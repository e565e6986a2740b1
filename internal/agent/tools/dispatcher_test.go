package tools

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its arguments",
		Parameters:  map[string]any{"type": "object"},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			var parsed map[string]any
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, err
			}
			return parsed, nil
		},
	}
}

func failingTool(name string, err error) Tool {
	return Tool{
		Name:       name,
		Parameters: map[string]any{"type": "object"},
		Handle: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, err
		},
	}
}

func newTestDispatcher(t *testing.T, reg *Registry) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(nil, nil, reg)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(echoTool("echo")); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestSpecsPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Register(echoTool(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	specs, err := r.Specs(context.Background())
	if err != nil {
		t.Fatalf("specs: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[0].Function.Name != "alpha" || specs[2].Function.Name != "gamma" {
		t.Fatalf("specs out of order: %+v", specs)
	}
}

func TestDispatchSuccessTagsCallID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, r)

	msg := d.Dispatch(context.Background(), openai.ToolCall{
		ID:       "call_7",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: "echo", Arguments: `{"hello":"world"}`},
	})

	if msg.Role != openai.ChatMessageRoleTool {
		t.Fatalf("expected tool role, got %s", msg.Role)
	}
	if msg.ToolCallID != "call_7" {
		t.Fatalf("tool result not tagged with call id: %+v", msg)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
		t.Fatalf("tool result not JSON: %v", err)
	}
	if result["hello"] != "world" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDispatchMalformedArgumentsIsAnErrorResult(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, r)

	msg := d.Dispatch(context.Background(), openai.ToolCall{
		ID:       "call_1",
		Function: openai.FunctionCall{Name: "echo", Arguments: `{"broken":`},
	})

	var body map[string]string
	if err := json.Unmarshal([]byte(msg.Content), &body); err != nil {
		t.Fatalf("error payload not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error payload, got %q", msg.Content)
	}
	if body["code"] != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %q", body["code"])
	}
}

func TestDispatchHandlerFailureBecomesToolResult(t *testing.T) {
	r := NewRegistry()
	toolErr := pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not ready for payment")
	if err := r.Register(failingTool("complete_checkout", toolErr)); err != nil {
		t.Fatalf("register: %v", err)
	}
	d := newTestDispatcher(t, r)

	msg := d.Dispatch(context.Background(), openai.ToolCall{
		ID:       "call_2",
		Function: openai.FunctionCall{Name: "complete_checkout", Arguments: `{}`},
	})

	var body map[string]string
	if err := json.Unmarshal([]byte(msg.Content), &body); err != nil {
		t.Fatalf("error payload not JSON: %v", err)
	}
	if body["code"] != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict code, got %+v", body)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(t, NewRegistry())

	msg := d.Dispatch(context.Background(), openai.ToolCall{
		ID:       "call_3",
		Function: openai.FunctionCall{Name: "nope", Arguments: `{}`},
	})

	var body map[string]string
	if err := json.Unmarshal([]byte(msg.Content), &body); err != nil {
		t.Fatalf("error payload not JSON: %v", err)
	}
	if body["code"] != string(pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found code, got %+v", body)
	}
}
