package product

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
)

// ProductDTO is the public product shape.
type ProductDTO struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
}

// ProductInput is the body accepted by create and update.
type ProductInput struct {
	Name        string          `json:"name" validate:"max=255"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,max=1024"`
}

// SearchResponse is returned by the keyword and semantic search endpoints.
type SearchResponse struct {
	ResponseText string       `json:"responseText"`
	Products     []ProductDTO `json:"products"`
}

// FromModel maps a catalog row to its response shape.
func FromModel(m models.Product) ProductDTO {
	return ProductDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		ImageURL:    m.ImageURL,
	}
}

// FromModels maps a slice, never returning nil.
func FromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
