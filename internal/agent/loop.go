package agent

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/conversations"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/llm"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/metrics"
)

// loopState tracks where a run is inside one model/tool iteration.
type loopState string

const (
	stateAwaitingModel  loopState = "awaiting_model"
	stateExecutingTools loopState = "executing_tools"
	stateDone           loopState = "done"
	stateError          loopState = "error"
)

const systemPrompt = `You are a shopping assistant for a merch store. ` +
	`You help the customer find products, build a checkout, collect buyer and ` +
	`shipping details, and complete payment. Use the available tools for every ` +
	`commerce action; never invent product ids, prices, or order confirmations. ` +
	`Amounts are integer minor units of the store currency. Before completing a ` +
	`checkout, confirm the total with the customer.`

// corrective nudge for a model turn that carried neither text nor tool calls.
const emptyTurnNudge = `Your last response contained no message and no tool ` +
	`calls. Reply to the customer or call a tool.`

// ModelCaller is the slice of the model client the loop needs.
type ModelCaller interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, onDelta llm.StreamHandler) (*llm.Turn, error)
}

// ToolDispatcher routes tool calls and advertises the merged toolset.
type ToolDispatcher interface {
	Specs(ctx context.Context) []openai.Tool
	Dispatch(ctx context.Context, call openai.ToolCall) openai.ChatCompletionMessage
}

// Controller drives the model/tool loop for one conversation turn: call the
// model, execute any tool calls it makes, feed the results back, repeat until
// the model answers in plain text or the turn cap is hit.
type Controller struct {
	model         ModelCaller
	tools         ToolDispatcher
	conversations conversations.Store
	logg          *logger.Logger
	metrics       *metrics.AgentMetrics
	maxTurns      int
	toolTimeout   time.Duration
}

type ControllerParams struct {
	Model         ModelCaller
	Tools         ToolDispatcher
	Conversations conversations.Store
	Logger        *logger.Logger
	Metrics       *metrics.AgentMetrics
	Config        config.AgentConfig
}

func NewController(params ControllerParams) (*Controller, error) {
	if params.Model == nil {
		return nil, fmt.Errorf("model caller is required")
	}
	if params.Tools == nil {
		return nil, fmt.Errorf("tool dispatcher is required")
	}
	if params.Conversations == nil {
		return nil, fmt.Errorf("conversation store is required")
	}

	maxTurns := params.Config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	toolTimeout := params.Config.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}

	return &Controller{
		model:         params.Model,
		tools:         params.Tools,
		conversations: params.Conversations,
		logg:          params.Logger,
		metrics:       params.Metrics,
		maxTurns:      maxTurns,
		toolTimeout:   toolTimeout,
	}, nil
}

// RunInput is one user message addressed to a conversation.
type RunInput struct {
	ConversationID string
	Message        string
	OnDelta        llm.StreamHandler
}

// Result is the terminal assistant reply of one run.
type Result struct {
	ConversationID string
	Reply          string
	Turns          int
}

// Run executes the loop for one user message. The caller's context cancels
// between iterations only; tool dispatches in flight finish on a detached
// context so the commerce state is never left half-updated by a disconnect.
func (c *Controller) Run(ctx context.Context, input RunInput) (*Result, error) {
	if input.ConversationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	ctx = c.withConversationContext(ctx, input.ConversationID)

	messages, err := c.conversations.Load(ctx, input.ConversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading conversation")
	}
	if len(messages) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input.Message,
	})

	specs := c.tools.Specs(ctx)
	nudged := false

	for turn := 1; turn <= c.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			c.saveBestEffort(ctx, input.ConversationID, messages)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "run canceled")
		}

		c.setState(ctx, stateAwaitingModel, turn)
		started := time.Now()
		resp, err := c.model.Chat(ctx, messages, specs, input.OnDelta)
		c.metrics.ObserveModelDuration(time.Since(started))
		if err != nil {
			c.setState(ctx, stateError, turn)
			c.metrics.IncModelCall("error")
			c.metrics.IncLoopFailure("model_error")
			c.saveBestEffort(ctx, input.ConversationID, messages)
			return nil, err
		}
		c.metrics.IncModelCall("ok")

		switch {
		case len(resp.ToolCalls) > 0:
			c.setState(ctx, stateExecutingTools, turn)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})
			messages = append(messages, c.dispatchAll(ctx, resp.ToolCalls)...)

		case resp.Content != "":
			c.setState(ctx, stateDone, turn)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: resp.Content,
			})
			if err := c.conversations.Save(ctx, input.ConversationID, messages); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving conversation")
			}
			c.metrics.ObserveLoopTurns(turn)
			return &Result{
				ConversationID: input.ConversationID,
				Reply:          resp.Content,
				Turns:          turn,
			}, nil

		default:
			if nudged {
				c.setState(ctx, stateError, turn)
				c.metrics.IncLoopFailure("empty_turn")
				c.saveBestEffort(ctx, input.ConversationID, messages)
				return nil, pkgerrors.New(pkgerrors.CodeDependency, "model produced consecutive empty turns")
			}
			nudged = true
			if c.logg != nil {
				c.logg.Warn(ctx, "agent.empty_turn: injecting corrective nudge")
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: emptyTurnNudge,
			})
		}
	}

	c.metrics.IncLoopFailure("loop_exceeded")
	c.saveBestEffort(ctx, input.ConversationID, messages)
	return nil, pkgerrors.New(pkgerrors.CodeLoopExceeded,
		fmt.Sprintf("agent loop exceeded %d turns without a terminal reply", c.maxTurns))
}

// dispatchAll executes every tool call of one model turn concurrently and
// returns the tool-result messages reassembled in call order, whatever order
// the handlers finished in.
func (c *Controller) dispatchAll(ctx context.Context, calls []openai.ToolCall) []openai.ChatCompletionMessage {
	// Detached from the caller: a disconnect mid-dispatch must not abandon a
	// checkout mutation halfway through.
	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.toolTimeout)
	defer cancel()

	results := make([]openai.ChatCompletionMessage, len(calls))
	g, gctx := errgroup.WithContext(toolCtx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = c.tools.Dispatch(gctx, call)
			return nil
		})
	}
	// Dispatch never returns an error; failures are error-payload results.
	_ = g.Wait()
	return results
}

func (c *Controller) saveBestEffort(ctx context.Context, conversationID string, messages []openai.ChatCompletionMessage) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.conversations.Save(saveCtx, conversationID, messages); err != nil && c.logg != nil {
		c.logg.Error(ctx, "agent.save_failed", err)
	}
}

func (c *Controller) setState(ctx context.Context, s loopState, turn int) {
	if c.logg == nil {
		return
	}
	c.logg.Debug(ctx, fmt.Sprintf("agent.state=%s turn=%d", s, turn))
}

func (c *Controller) withConversationContext(ctx context.Context, conversationID string) context.Context {
	if c.logg == nil {
		return ctx
	}
	return c.logg.WithConversationID(ctx, conversationID)
}
