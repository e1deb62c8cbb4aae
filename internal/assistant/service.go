package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	product "github.com/angelmondragon/eshoplite-backend/internal/products"
	"github.com/angelmondragon/eshoplite-backend/internal/search"
	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/openai"
)

const (
	defaultContextMessages = 10

	fallbackReply = "I'm sorry, I couldn't process that request."

	persona = "You are Zava, a helpful shopping assistant for an outdoor camping products store.\n" +
		"You help customers find products from the catalog, compare them and pick what fits their trip.\n" +
		"Only recommend products listed in the catalog context you are given. " +
		"If the context has no suitable product, say so and suggest what to search for instead.\n" +
		"Be friendly, concise, and helpful. Always be enthusiastic about outdoor adventures and camping!"
)

// Retriever finds catalog products relevant to a message.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Product, error)
}

type Service interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

type ServiceParams struct {
	Retriever       Retriever
	Chat            search.ChatCompleter
	Store           ConversationStore
	Logger          *logger.Logger
	ContextMessages int
	Clock           func() time.Time
}

type service struct {
	retriever       Retriever
	chat            search.ChatCompleter
	store           ConversationStore
	logg            *logger.Logger
	contextMessages int
	clock           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversation store is required")
	}
	if params.ContextMessages <= 0 {
		params.ContextMessages = defaultContextMessages
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		retriever:       params.Retriever,
		chat:            params.Chat,
		store:           params.Store,
		logg:            params.Logger,
		contextMessages: params.ContextMessages,
		clock:           params.Clock,
	}, nil
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message cannot be empty").
			WithDetails(map[string]any{"field": "message", "reason": "required"})
	}
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if s.logg != nil {
		ctx = s.logg.WithConversationID(s.logg.WithOperation(ctx, "assistant.chat"), conversationID)
	}

	history, err := s.store.Recent(ctx, conversationID, s.contextMessages)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation history unavailable")
	}

	products := s.retrieve(ctx, message)

	if s.chat == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "chat provider not configured")
	}
	reply, err := s.chat.Complete(ctx, buildMessages(history, message, products))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "assistant reply failed")
	}
	if strings.TrimSpace(reply) == "" {
		reply = fallbackReply
	}

	now := s.clock().UTC()
	if err := s.store.Append(ctx, conversationID,
		Message{Role: enums.ChatRoleUser, Content: message, Timestamp: now},
		Message{Role: enums.ChatRoleAssistant, Content: reply, Timestamp: now},
	); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation history unavailable")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"history_messages": len(history),
			"products":         len(products),
		})
		s.logg.Info(logCtx, "assistant.replied")
	}
	return &ChatResponse{
		Message:        reply,
		ConversationID: conversationID,
		Products:       product.FromModels(products),
	}, nil
}

// retrieve is best effort: the assistant still answers without catalog context.
func (s *service) retrieve(ctx context.Context, message string) []models.Product {
	if s.retriever == nil {
		return nil
	}
	products, err := s.retriever.Retrieve(ctx, message)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "assistant.retrieve_failed")
		}
	}
	return products
}

func (s *service) DeleteConversation(ctx context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if err := s.store.Delete(ctx, conversationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation history unavailable")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithConversationID(ctx, conversationID), "assistant.conversation_deleted")
	}
	return nil
}

func buildMessages(history []Message, message string, products []models.Product) []openai.Message {
	msgs := make([]openai.Message, 0, len(history)+2)
	msgs = append(msgs, openai.Message{Role: enums.ChatRoleSystem, Content: persona})
	for _, h := range history {
		role := enums.ChatRoleAssistant
		if h.Role == enums.ChatRoleUser {
			role = enums.ChatRoleUser
		}
		msgs = append(msgs, openai.Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, openai.Message{Role: enums.ChatRoleUser, Content: userPrompt(message, products)})
	return msgs
}

func userPrompt(message string, products []models.Product) string {
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\n\nCatalog context:\n")
	if len(products) == 0 {
		sb.WriteString("No matching products were found in the catalog.\n")
		return sb.String()
	}
	sb.WriteString(search.FormatProductList(products))
	return sb.String()
}
