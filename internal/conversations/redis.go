package conversations

import (
	"context"
	"encoding/json"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/redis"
)

// RedisStore persists conversation logs as JSON documents in Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) ([]openai.ChatCompletionMessage, error) {
	raw, err := s.client.Get(ctx, s.client.ConversationKey(conversationID))
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading conversation log")
	}

	messages, err := decodeMessages([]byte(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding conversation log")
	}
	return messages, nil
}

func (s *RedisStore) Save(ctx context.Context, conversationID string, messages []openai.ChatCompletionMessage) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding conversation log")
	}
	if err := s.client.Set(ctx, s.client.ConversationKey(conversationID), string(raw), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving conversation log")
	}
	return nil
}
