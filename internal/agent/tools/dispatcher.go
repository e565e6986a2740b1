package tools

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/metrics"
)

// Dispatcher maps model tool calls to handlers across one or more sources
// and turns every outcome, success or failure, into a tool-result message.
// A failed tool never aborts the loop; the error payload is handed back to
// the model so it can correct itself.
type Dispatcher struct {
	sources []Source
	logg    *logger.Logger
	metrics *metrics.AgentMetrics
}

func NewDispatcher(logg *logger.Logger, m *metrics.AgentMetrics, sources ...Source) (*Dispatcher, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one tool source required")
	}
	return &Dispatcher{sources: sources, logg: logg, metrics: m}, nil
}

// Specs merges the tool schemas of all sources, in source order. A source
// that fails to produce specs is skipped with a warning so one unavailable
// provider does not take down the rest of the toolset.
func (d *Dispatcher) Specs(ctx context.Context) []openai.Tool {
	var out []openai.Tool
	for _, src := range d.sources {
		specs, err := src.Specs(ctx)
		if err != nil {
			if d.logg != nil {
				d.logg.Warn(ctx, fmt.Sprintf("tool source specs unavailable: %v", err))
			}
			continue
		}
		out = append(out, specs...)
	}
	return out
}

// Dispatch executes one tool call and returns the tool-result message tagged
// with the originating call id.
func (d *Dispatcher) Dispatch(ctx context.Context, call openai.ToolCall) openai.ChatCompletionMessage {
	name := call.Function.Name
	ctx = d.withToolContext(ctx, name)

	payload := d.run(ctx, name, call.Function.Arguments)

	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Name:       name,
		ToolCallID: call.ID,
		Content:    payload,
	}
}

func (d *Dispatcher) run(ctx context.Context, name, rawArgs string) string {
	args := json.RawMessage(rawArgs)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		d.metrics.IncToolDispatch(name, "invalid_arguments")
		if d.logg != nil {
			d.logg.Warn(ctx, "tool.malformed_arguments")
		}
		return errorPayload(pkgerrors.New(pkgerrors.CodeValidation, "tool arguments are not valid JSON"))
	}

	for _, src := range d.sources {
		if !src.Handles(ctx, name) {
			continue
		}
		result, err := src.Invoke(ctx, name, args)
		if err != nil {
			d.metrics.IncToolDispatch(name, "error")
			if d.logg != nil {
				d.logg.Warn(ctx, fmt.Sprintf("tool.failed: %v", err))
			}
			return errorPayload(err)
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			d.metrics.IncToolDispatch(name, "error")
			return errorPayload(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding tool result"))
		}
		d.metrics.IncToolDispatch(name, "ok")
		return string(encoded)
	}

	d.metrics.IncToolDispatch(name, "unknown_tool")
	return errorPayload(pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown tool %s", name)))
}

func (d *Dispatcher) withToolContext(ctx context.Context, name string) context.Context {
	if d.logg == nil {
		return ctx
	}
	return d.logg.WithToolName(ctx, name)
}

// errorPayload renders a failure as a structured tool result the model can
// read and react to.
func errorPayload(err error) string {
	body := map[string]string{"error": err.Error()}
	if typed := pkgerrors.As(err); typed != nil {
		body["error"] = typed.Message()
		body["code"] = string(typed.Code())
	}
	encoded, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return `{"error":"internal error"}`
	}
	return string(encoded)
}
