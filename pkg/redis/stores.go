package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayStore keeps the first response recorded for an idempotency key.
type ReplayStore interface {
	Recall(ctx context.Context, scope, idemKey string) (string, bool, error)
	Remember(ctx context.Context, scope, idemKey, record string, ttl time.Duration) (bool, error)
}

// Counter backs fixed-window rate limits.
type Counter interface {
	Hit(ctx context.Context, scope string, window time.Duration) (int64, error)
}

// ConversationLog stores assistant turns as a capped list per conversation.
type ConversationLog interface {
	AppendConversation(ctx context.Context, id string, keep int64, ttl time.Duration, entries ...string) error
	ConversationTail(ctx context.Context, id string, n int64) ([]string, error)
	DropConversation(ctx context.Context, id string) error
}

var (
	_ ReplayStore     = (*Client)(nil)
	_ Counter         = (*Client)(nil)
	_ ConversationLog = (*Client)(nil)
)

// Recall returns the stored record and whether one exists.
func (c *Client) Recall(ctx context.Context, scope, idemKey string) (string, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}
	v, err := c.cmd.Get(ctx, key("idempotency", scope, idemKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Remember stores record unless another request got there first.
func (c *Client) Remember(ctx context.Context, scope, idemKey, record string, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmd.SetNX(ctx, key("idempotency", scope, idemKey), record, ttl).Result()
}

// Hit counts one request in the current window. INCR and EXPIRE NX run in
// one transaction, so the window starts with the first hit and a counter
// never exists without a TTL. EXPIRE NX needs Redis 7 or newer.
func (c *Client) Hit(ctx context.Context, scope string, window time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	k := key("rate_limit", scope)
	var incr *redis.IntCmd
	_, err := c.cmd.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		if window > 0 {
			p.ExpireNX(ctx, k, window)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", k, err)
	}
	return incr.Val(), nil
}

// AppendConversation pushes entries, trims to the newest keep and refreshes
// the idle TTL in a single transaction.
func (c *Client) AppendConversation(ctx context.Context, id string, keep int64, ttl time.Duration, entries ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	k := key("conversation", id)
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		values = append(values, e)
	}
	_, err := c.cmd.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, k, values...)
		if keep > 0 {
			p.LTrim(ctx, k, -keep, -1)
		}
		if ttl > 0 {
			p.Expire(ctx, k, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", k, err)
	}
	return nil
}

// ConversationTail returns the newest n entries, oldest first. n <= 0 means all.
func (c *Client) ConversationTail(ctx context.Context, id string, n int64) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	start := int64(0)
	if n > 0 {
		start = -n
	}
	out, err := c.cmd.LRange(ctx, key("conversation", id), start, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	return out, err
}

func (c *Client) DropConversation(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Del(ctx, key("conversation", id)).Err()
}
