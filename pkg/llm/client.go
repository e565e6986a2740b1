package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

// StreamHandler receives assistant content deltas as they arrive. Tool-call
// turns never produce deltas; they are intermediate and not streamed.
type StreamHandler func(delta string)

// Turn is one fully accumulated model response: either terminal assistant
// text, one or more tool invocations, or (on a malformed model turn) neither.
type Turn struct {
	Content   string
	ToolCalls []openai.ToolCall
}

// Client wraps the OpenAI chat completion API with the model parameters fixed
// at construction.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient builds the model client from configuration.
func NewClient(cfg config.OpenAIConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "model", cfg.Model), "openai client initialized")
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Chat streams one model turn. Content deltas are forwarded to onDelta as
// they are produced; tool call fragments are accumulated by call index until
// the stream's end marker and returned whole.
func (c *Client) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, onDelta StreamHandler) (*Turn, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}
	if len(tools) > 0 {
		req.Tools = tools
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening model stream")
	}
	defer stream.Close()

	var content strings.Builder
	calls := map[int]*openai.ToolCall{}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading model stream")
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onDelta != nil {
				onDelta(delta.Content)
			}
		}
		for _, fragment := range delta.ToolCalls {
			mergeToolCallFragment(calls, fragment)
		}
	}

	return &Turn{
		Content:   content.String(),
		ToolCalls: orderedCalls(calls),
	}, nil
}

// mergeToolCallFragment folds a streamed fragment into the call accumulated
// at its index. The id, type and function name arrive on the first fragment;
// argument JSON arrives chunked across the rest.
func mergeToolCallFragment(calls map[int]*openai.ToolCall, fragment openai.ToolCall) {
	idx := 0
	if fragment.Index != nil {
		idx = *fragment.Index
	}

	call, ok := calls[idx]
	if !ok {
		call = &openai.ToolCall{}
		calls[idx] = call
	}
	if fragment.ID != "" {
		call.ID = fragment.ID
	}
	if fragment.Type != "" {
		call.Type = fragment.Type
	}
	if fragment.Function.Name != "" {
		call.Function.Name = fragment.Function.Name
	}
	call.Function.Arguments += fragment.Function.Arguments
}

func orderedCalls(calls map[int]*openai.ToolCall) []openai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]openai.ToolCall, 0, len(calls))
	for _, idx := range indexes {
		out = append(out, *calls[idx])
	}
	return out
}

// String names the configured model for logging.
func (c *Client) String() string {
	return fmt.Sprintf("openai(%s)", c.model)
}
