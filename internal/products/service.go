package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

// Service exposes catalog management and keyword search.
type Service interface {
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id int64) error
	SearchByName(ctx context.Context, term string) (*SearchResponse, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "products.list", err)
	}
	return FromModels(rows), nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError(ctx, "products.get", err)
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, s.storageError(ctx, "products.create", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID), "product.created")
	dto := FromModel(*created)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*ProductDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError(ctx, "products.update", err)
	}
	if existing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = input.Description
	existing.Price = input.Price
	existing.ImageURL = input.ImageURL

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, s.storageError(ctx, "products.update", err)
	}
	if updated == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storageError(ctx, "products.delete", err)
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id), "product.deleted")
	return nil
}

func (s *service) SearchByName(ctx context.Context, term string) (*SearchResponse, error) {
	rows, err := s.repo.SearchByName(ctx, term)
	if err != nil {
		return nil, s.storageError(ctx, "products.search", err)
	}
	text := fmt.Sprintf("No products found for [%s]", term)
	if len(rows) > 0 {
		text = fmt.Sprintf("%d Products found for [%s]", len(rows), term)
	}
	return &SearchResponse{ResponseText: text, Products: FromModels(rows)}, nil
}

func (s *service) storageError(ctx context.Context, op string, err error) error {
	s.logg.Error(s.logg.WithOperation(ctx, op), "product.storage_failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "catalog storage failure")
}

func validateInput(input ProductInput) error {
	switch {
	case strings.TrimSpace(input.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required").WithDetails(map[string]string{"field": "name"})
	case input.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").WithDetails(map[string]string{"field": "price"})
	}
	return nil
}
