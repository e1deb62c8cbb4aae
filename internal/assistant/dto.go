package assistant

import product "github.com/angelmondragon/eshoplite-backend/internal/products"

type ChatRequest struct {
	Message        string `json:"message" validate:"max=4000"`
	ConversationID string `json:"conversationId,omitempty" validate:"omitempty,max=64"`
}

type ChatResponse struct {
	Message        string               `json:"message"`
	ConversationID string               `json:"conversationId"`
	Products       []product.ProductDTO `json:"products"`
}
