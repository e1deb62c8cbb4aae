package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	pkgredis "github.com/angelmondragon/eshoplite-backend/pkg/redis"
)

// Message is one turn of a stored conversation.
type Message struct {
	Role      enums.ChatRole `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// ConversationStore keeps conversation history keyed by conversation id.
type ConversationStore interface {
	Append(ctx context.Context, conversationID string, msgs ...Message) error
	Recent(ctx context.Context, conversationID string, n int) ([]Message, error)
	Delete(ctx context.Context, conversationID string) error
}

// RedisStore keeps each conversation as a capped Redis list that expires
// after ttl of inactivity.
type RedisStore struct {
	log    pkgredis.ConversationLog
	maxLen int64
	ttl    time.Duration
}

func NewRedisStore(log pkgredis.ConversationLog, maxLen int, ttl time.Duration) *RedisStore {
	return &RedisStore{log: log, maxLen: int64(maxLen), ttl: ttl}
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, msgs ...Message) error {
	values := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, string(raw))
	}
	return s.log.AppendConversation(ctx, conversationID, s.maxLen, s.ttl, values...)
}

// Recent returns up to n of the newest messages, oldest first.
func (s *RedisStore) Recent(ctx context.Context, conversationID string, n int) ([]Message, error) {
	values, err := s.log.ConversationTail(ctx, conversationID, int64(n))
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(values))
	for _, raw := range values {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		if !msg.Role.IsValid() {
			return nil, fmt.Errorf("decode message: unknown role %q", msg.Role)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	return s.log.DropConversation(ctx, conversationID)
}
