package conversations

import (
	"context"
	"encoding/json"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Store is an append-only log of conversation messages keyed by conversation
// id. Messages are persisted verbatim, tool calls included, so a conversation
// can be replayed into the model on the next turn.
type Store interface {
	Load(ctx context.Context, conversationID string) ([]openai.ChatCompletionMessage, error)
	Save(ctx context.Context, conversationID string, messages []openai.ChatCompletionMessage) error
}

// decodeMessages tolerates individually corrupt entries: historical replay is
// display/context reconstruction, so a bad entry is skipped rather than
// failing the whole conversation. New transitions are never validated against
// this path.
func decodeMessages(raw []byte) ([]openai.ChatCompletionMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	out := make([]openai.ChatCompletionMessage, 0, len(entries))
	for _, entry := range entries {
		var msg openai.ChatCompletionMessage
		if err := json.Unmarshal(entry, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// MemoryStore keeps conversations in a map. Demo fallback when Redis is not
// configured, and the default in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) ([]openai.ChatCompletionMessage, error) {
	_ = ctx

	s.mu.RLock()
	raw, ok := s.logs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeMessages(raw)
}

func (s *MemoryStore) Save(ctx context.Context, conversationID string, messages []openai.ChatCompletionMessage) error {
	_ = ctx

	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.logs[conversationID] = raw
	s.mu.Unlock()
	return nil
}
