package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/conversations"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/llm"
)

// scriptedModel returns its turns in order and records each request.
type scriptedModel struct {
	turns    []*llm.Turn
	err      error
	calls    int
	requests [][]openai.ChatCompletionMessage
}

func (m *scriptedModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, onDelta llm.StreamHandler) (*llm.Turn, error) {
	m.requests = append(m.requests, append([]openai.ChatCompletionMessage(nil), messages...))
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.turns) {
		return &llm.Turn{Content: "done"}, nil
	}
	turn := m.turns[m.calls]
	m.calls++
	if onDelta != nil && turn.Content != "" && len(turn.ToolCalls) == 0 {
		onDelta(turn.Content)
	}
	return turn, nil
}

// slowDispatcher answers tool calls with their call id, optionally delaying
// specific tools to scramble completion order.
type slowDispatcher struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	seen   []string
}

func (d *slowDispatcher) Specs(ctx context.Context) []openai.Tool {
	return []openai.Tool{{
		Type:     openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{Name: "search_products"},
	}}
}

func (d *slowDispatcher) Dispatch(ctx context.Context, call openai.ToolCall) openai.ChatCompletionMessage {
	if delay := d.delays[call.Function.Name]; delay > 0 {
		time.Sleep(delay)
	}
	d.mu.Lock()
	d.seen = append(d.seen, call.Function.Name)
	d.mu.Unlock()
	payload, _ := json.Marshal(map[string]string{"tool": call.Function.Name})
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Name:       call.Function.Name,
		ToolCallID: call.ID,
		Content:    string(payload),
	}
}

func newTestController(t *testing.T, model ModelCaller, dispatcher ToolDispatcher, cfg config.AgentConfig) (*Controller, *conversations.MemoryStore) {
	t.Helper()
	store := conversations.NewMemoryStore()
	ctrl, err := NewController(ControllerParams{
		Model:         model,
		Tools:         dispatcher,
		Conversations: store,
		Config:        cfg,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl, store
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestRunPlainReply(t *testing.T) {
	model := &scriptedModel{turns: []*llm.Turn{{Content: "hi there"}}}
	ctrl, store := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{})

	var streamed strings.Builder
	result, err := ctrl.Run(context.Background(), RunInput{
		ConversationID: "conv_1",
		Message:        "hello",
		OnDelta:        func(delta string) { streamed.WriteString(delta) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Reply != "hi there" || result.Turns != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if streamed.String() != "hi there" {
		t.Fatalf("deltas not forwarded: %q", streamed.String())
	}

	saved, err := store.Load(context.Background(), "conv_1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// system + user + assistant
	if len(saved) != 3 {
		t.Fatalf("expected 3 persisted messages, got %d", len(saved))
	}
	if saved[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message should be the system prompt, got %s", saved[0].Role)
	}
	if saved[1].Role != openai.ChatMessageRoleUser || saved[1].Content != "hello" {
		t.Fatalf("user message not persisted verbatim: %+v", saved[1])
	}
}

func TestRunToolResultsOrderedByCallIndex(t *testing.T) {
	model := &scriptedModel{turns: []*llm.Turn{
		{ToolCalls: []openai.ToolCall{
			toolCall("call_a", "slow_tool", `{}`),
			toolCall("call_b", "fast_tool", `{}`),
		}},
		{Content: "both results in"},
	}}
	dispatcher := &slowDispatcher{delays: map[string]time.Duration{"slow_tool": 50 * time.Millisecond}}
	ctrl, store := newTestController(t, model, dispatcher, config.AgentConfig{})

	result, err := ctrl.Run(context.Background(), RunInput{ConversationID: "conv_2", Message: "go"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Turns != 2 {
		t.Fatalf("expected 2 turns, got %d", result.Turns)
	}

	// The fast tool finished first.
	if len(dispatcher.seen) != 2 || dispatcher.seen[0] != "fast_tool" {
		t.Fatalf("expected concurrent dispatch with fast_tool finishing first, got %v", dispatcher.seen)
	}

	saved, err := store.Load(context.Background(), "conv_2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// system, user, assistant(tool calls), tool x2, assistant
	if len(saved) != 6 {
		t.Fatalf("expected 6 persisted messages, got %d", len(saved))
	}
	if saved[3].Role != openai.ChatMessageRoleTool || saved[3].ToolCallID != "call_a" {
		t.Fatalf("tool results out of call order: %+v", saved[3])
	}
	if saved[4].ToolCallID != "call_b" {
		t.Fatalf("tool results out of call order: %+v", saved[4])
	}
}

func TestRunSecondMessageReplaysHistory(t *testing.T) {
	model := &scriptedModel{turns: []*llm.Turn{{Content: "first"}, {Content: "second"}}}
	ctrl, _ := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{})

	ctx := context.Background()
	if _, err := ctrl.Run(ctx, RunInput{ConversationID: "conv_3", Message: "one"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := ctrl.Run(ctx, RunInput{ConversationID: "conv_3", Message: "two"}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	last := model.requests[len(model.requests)-1]
	// system, user one, assistant first, user two
	if len(last) != 4 {
		t.Fatalf("expected replayed history of 4 messages, got %d", len(last))
	}
	if last[2].Content != "first" || last[3].Content != "two" {
		t.Fatalf("history not replayed in order: %+v", last)
	}
}

func TestRunEmptyTurnGetsOneNudge(t *testing.T) {
	model := &scriptedModel{turns: []*llm.Turn{{}, {Content: "recovered"}}}
	ctrl, _ := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{})

	result, err := ctrl.Run(context.Background(), RunInput{ConversationID: "conv_4", Message: "hi"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Reply != "recovered" {
		t.Fatalf("unexpected reply %q", result.Reply)
	}
	// The nudge consumed a turn.
	if result.Turns != 2 {
		t.Fatalf("expected the nudge to count against the cap, got %d turns", result.Turns)
	}

	nudge := model.requests[1][len(model.requests[1])-1]
	if nudge.Role != openai.ChatMessageRoleUser || !strings.Contains(nudge.Content, "no message and no tool calls") {
		t.Fatalf("expected corrective nudge, got %+v", nudge)
	}
}

func TestRunConsecutiveEmptyTurnsFail(t *testing.T) {
	model := &scriptedModel{turns: []*llm.Turn{{}, {}}}
	ctrl, _ := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{})

	_, err := ctrl.Run(context.Background(), RunInput{ConversationID: "conv_5", Message: "hi"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRunLoopExceeded(t *testing.T) {
	// The model asks for a tool on every turn and never terminates.
	endless := make([]*llm.Turn, 4)
	for i := range endless {
		endless[i] = &llm.Turn{ToolCalls: []openai.ToolCall{toolCall("call_x", "search_products", `{}`)}}
	}
	model := &scriptedModel{turns: endless}
	ctrl, store := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{MaxTurns: 3})

	_, err := ctrl.Run(context.Background(), RunInput{ConversationID: "conv_6", Message: "loop"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLoopExceeded {
		t.Fatalf("expected loop exceeded, got %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("expected exactly 3 model calls, got %d", model.calls)
	}

	// The partial transcript is still persisted for inspection.
	saved, err := store.Load(context.Background(), "conv_6")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved) == 0 {
		t.Fatal("expected partial conversation to be saved")
	}
}

func TestRunModelErrorAborts(t *testing.T) {
	model := &scriptedModel{err: pkgerrors.New(pkgerrors.CodeDependency, "model unavailable")}
	ctrl, _ := newTestController(t, model, &slowDispatcher{}, config.AgentConfig{})

	_, err := ctrl.Run(context.Background(), RunInput{ConversationID: "conv_7", Message: "hi"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRunValidatesInput(t *testing.T) {
	ctrl, _ := newTestController(t, &scriptedModel{}, &slowDispatcher{}, config.AgentConfig{})

	_, err := ctrl.Run(context.Background(), RunInput{Message: "hi"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing conversation id, got %v", err)
	}

	_, err = ctrl.Run(context.Background(), RunInput{ConversationID: "conv_8"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing message, got %v", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl, _ := newTestController(t, &scriptedModel{}, &slowDispatcher{}, config.AgentConfig{})
	if _, err := ctrl.Run(ctx, RunInput{ConversationID: "conv_9", Message: "hi"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
