package assistant

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/openai"
)

type stubRetriever struct {
	products []models.Product
	err      error
	queries  []string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string) ([]models.Product, error) {
	s.queries = append(s.queries, query)
	return s.products, s.err
}

type stubChat struct {
	reply    string
	err      error
	messages []openai.Message
}

func (s *stubChat) Complete(_ context.Context, msgs []openai.Message) (string, error) {
	s.messages = msgs
	return s.reply, s.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, retriever *stubRetriever, chat *stubChat, lists *fakeLists) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Retriever:       retriever,
		Chat:            chat,
		Store:           NewRedisStore(lists, 20, 24*time.Hour),
		Logger:          logger.New(logger.Options{ServiceName: "assistant-test", Output: io.Discard}),
		ContextMessages: 10,
		Clock:           func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func TestChatRejectsBlankMessage(t *testing.T) {
	chat := &stubChat{reply: "hi"}
	svc := newTestService(t, &stubRetriever{}, chat, newFakeLists())

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "   "})

	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Nil(t, chat.messages)
}

func TestChatStartsConversationAndStoresTurn(t *testing.T) {
	retriever := &stubRetriever{products: []models.Product{
		{ID: 7, Name: "Camping Stove", Description: "Two burner stove", Price: decimal.RequireFromString("79.99")},
	}}
	chat := &stubChat{reply: "The Camping Stove is your new best friend!"}
	lists := newFakeLists()
	svc := newTestService(t, retriever, chat, lists)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: " need a stove "})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(resp.ConversationID)
	require.NoError(t, parseErr)
	assert.Equal(t, "The Camping Stove is your new best friend!", resp.Message)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(7), resp.Products[0].ID)
	assert.Equal(t, []string{"need a stove"}, retriever.queries)

	require.Len(t, chat.messages, 2)
	assert.Equal(t, enums.ChatRoleSystem, chat.messages[0].Role)
	assert.Contains(t, chat.messages[0].Content, "Zava")
	assert.Contains(t, chat.messages[1].Content, "need a stove\n\nCatalog context:\n- Product 1:\n  - Name: Camping Stove\n")

	stored := lists.lists[resp.ConversationID]
	require.Len(t, stored, 2)
	assert.Contains(t, stored[0], `"role":"user"`)
	assert.Contains(t, stored[1], `"role":"assistant"`)
}

func TestChatSendsOnlyRecentHistory(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	lists := newFakeLists()
	svc := newTestService(t, &stubRetriever{}, chat, lists)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Chat(ctx, ChatRequest{Message: "question", ConversationID: "trip"})
		require.NoError(t, err)
	}

	assert.Len(t, lists.lists["trip"], 20)
	// persona + 10 history messages + current prompt
	assert.Len(t, chat.messages, 12)
	assert.Equal(t, enums.ChatRoleUser, chat.messages[1].Role)
	assert.Equal(t, enums.ChatRoleAssistant, chat.messages[10].Role)
	assert.Contains(t, chat.messages[11].Content, "No matching products were found")
}

func TestChatContinuesWhenRetrievalFails(t *testing.T) {
	retriever := &stubRetriever{err: pkgerrors.New(pkgerrors.CodeProvider, "embedding provider returned status 503")}
	chat := &stubChat{reply: "Happy to help!"}
	svc := newTestService(t, retriever, chat, newFakeLists())

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "hello", ConversationID: "c1"})

	require.NoError(t, err)
	assert.Equal(t, "c1", resp.ConversationID)
	assert.NotNil(t, resp.Products)
	assert.Empty(t, resp.Products)
}

func TestChatProviderFailure(t *testing.T) {
	chat := &stubChat{err: errors.New("upstream timeout")}
	lists := newFakeLists()
	svc := newTestService(t, &stubRetriever{}, chat, lists)

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hello", ConversationID: "c1"})

	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeProvider))
	assert.Empty(t, lists.lists["c1"])
}

func TestChatEmptyReplyUsesFallback(t *testing.T) {
	svc := newTestService(t, &stubRetriever{}, &stubChat{reply: "  "}, newFakeLists())

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, fallbackReply, resp.Message)
}

func TestChatStoreFailureIsDependencyError(t *testing.T) {
	lists := newFakeLists()
	lists.err = errors.New("redis down")
	svc := newTestService(t, &stubRetriever{}, &stubChat{reply: "hi"}, lists)

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hello"})

	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestChatWithoutProvider(t *testing.T) {
	svc, err := NewService(ServiceParams{Store: NewRedisStore(newFakeLists(), 20, time.Hour)})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: "hello"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeProvider))
}

func TestDeleteConversation(t *testing.T) {
	lists := newFakeLists()
	svc := newTestService(t, &stubRetriever{}, &stubChat{reply: "hi"}, lists)
	ctx := context.Background()
	_, err := svc.Chat(ctx, ChatRequest{Message: "hello", ConversationID: "gone"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, "gone"))
	_, ok := lists.lists["gone"]
	assert.False(t, ok)

	err = svc.DeleteConversation(ctx, " ")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
