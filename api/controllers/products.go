package controllers

import (
	"net/http"
	"strconv"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	"github.com/angelmondragon/eshoplite-backend/api/validators"
	product "github.com/angelmondragon/eshoplite-backend/internal/products"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

const catalogService = "product service"

func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		list, err := svc.ListProducts(r.Context())
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		id, err := validators.PathID(r, "productId")
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		found, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

// CreateProduct answers 201 with a Location header for the new id.
func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		var in product.ProductInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			fail(w, r, logg, err)
			return
		}
		created, err := svc.CreateProduct(r.Context(), in)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		w.Header().Set("Location", "/api/products/"+strconv.FormatInt(created.ID, 10))
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		id, err := validators.PathID(r, "productId")
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		var in product.ProductInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			fail(w, r, logg, err)
			return
		}
		updated, err := svc.UpdateProduct(r.Context(), id, in)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		id, err := validators.PathID(r, "productId")
		if err == nil {
			err = svc.DeleteProduct(r.Context(), id)
		}
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// KeywordSearch matches product names by case-insensitive substring.
func KeywordSearch(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, catalogService)
			return
		}
		found, err := svc.SearchByName(r.Context(), validators.PathTerm(r, "search", maxSearchTermRunes))
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}
