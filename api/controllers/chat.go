package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/responses"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/validators"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/agent"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message" validate:"required,max=4000"`
}

// Chat runs one agent turn and streams the assistant reply as server-sent
// events: a conversation_id event, content deltas as they arrive, then a
// final result (or error) event, closed by a [DONE] marker. Tool-call turns
// produce no deltas.
func Chat(ctrl *agent.Controller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctrl == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agent unavailable"))
			return
		}

		var payload chatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID := validators.SanitizeString(payload.ConversationID, 100)
		if conversationID == "" {
			conversationID = "conv_" + uuid.NewString()
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeEvent(w, flusher, map[string]string{"conversation_id": conversationID})

		result, err := ctrl.Run(r.Context(), agent.RunInput{
			ConversationID: conversationID,
			Message:        payload.Message,
			OnDelta: func(delta string) {
				writeEvent(w, flusher, map[string]string{"delta": delta})
			},
		})
		if err != nil {
			code := pkgerrors.CodeInternal
			msg := "agent run failed"
			if typed := pkgerrors.As(err); typed != nil {
				code = typed.Code()
				msg = pkgerrors.MetadataFor(code).PublicMessage
			}
			if logg != nil {
				logg.Error(logg.WithConversationID(r.Context(), conversationID), "chat.failed", err)
			}
			writeEvent(w, flusher, map[string]string{"error": msg, "code": string(code)})
		} else {
			writeEvent(w, flusher, map[string]any{
				"conversation_id": result.ConversationID,
				"reply":           result.Reply,
				"turns":           result.Turns,
			})
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", encoded)
	flusher.Flush()
}
