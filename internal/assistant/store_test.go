package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
)

// fakeLists keeps conversations in a map keyed by conversation id.
type fakeLists struct {
	mu    sync.Mutex
	lists map[string][]string
	ttls  map[string]time.Duration
	err   error
}

func newFakeLists() *fakeLists {
	return &fakeLists{lists: map[string][]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLists) AppendConversation(_ context.Context, key string, maxLen int64, ttl time.Duration, values ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	list := append(f.lists[key], values...)
	if maxLen > 0 && int64(len(list)) > maxLen {
		list = list[int64(len(list))-maxLen:]
	}
	f.lists[key] = list
	f.ttls[key] = ttl
	return nil
}

func (f *fakeLists) ConversationTail(_ context.Context, key string, n int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	list := f.lists[key]
	if n > 0 && int64(len(list)) > n {
		list = list[int64(len(list))-n:]
	}
	return append([]string{}, list...), nil
}

func (f *fakeLists) DropConversation(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.lists, key)
	return nil
}

func TestRedisStoreKeepsNewestMessages(t *testing.T) {
	lists := newFakeLists()
	store := NewRedisStore(lists, 4, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, "conv-1",
			Message{Role: enums.ChatRoleUser, Content: "q" + string(rune('a'+i))},
			Message{Role: enums.ChatRoleAssistant, Content: "a" + string(rune('a'+i))},
		))
	}

	assert.Len(t, lists.lists["conv-1"], 4)
	assert.Equal(t, time.Hour, lists.ttls["conv-1"])

	recent, err := store.Recent(ctx, "conv-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "ab", recent[0].Content)
	assert.Equal(t, "qc", recent[1].Content)
	assert.Equal(t, "ac", recent[2].Content)
	assert.Equal(t, enums.ChatRoleAssistant, recent[2].Role)
}

func TestRedisStoreRecentOnUnknownConversation(t *testing.T) {
	store := NewRedisStore(newFakeLists(), 20, time.Hour)
	recent, err := store.Recent(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRedisStoreRejectsCorruptEntries(t *testing.T) {
	lists := newFakeLists()
	lists.lists["bad"] = []string{"{not json"}
	lists.lists["tool"] = []string{`{"role":"tool","content":"x"}`}
	store := NewRedisStore(lists, 20, time.Hour)

	_, err := store.Recent(context.Background(), "bad", 10)
	require.Error(t, err)
	_, err = store.Recent(context.Background(), "tool", 10)
	require.Error(t, err)
}

func TestRedisStoreDelete(t *testing.T) {
	lists := newFakeLists()
	store := NewRedisStore(lists, 20, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "conv-2", Message{Role: enums.ChatRoleUser, Content: "hi"}))

	require.NoError(t, store.Delete(ctx, "conv-2"))
	_, ok := lists.lists["conv-2"]
	assert.False(t, ok)
}

func TestRedisStorePropagatesErrors(t *testing.T) {
	lists := newFakeLists()
	lists.err = errors.New("connection refused")
	store := NewRedisStore(lists, 20, time.Hour)

	require.Error(t, store.Append(context.Background(), "c", Message{Content: "x"}))
	_, err := store.Recent(context.Background(), "c", 10)
	require.Error(t, err)
}
