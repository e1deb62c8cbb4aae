package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	"github.com/angelmondragon/eshoplite-backend/api/validators"
	product "github.com/angelmondragon/eshoplite-backend/internal/products"
	"github.com/angelmondragon/eshoplite-backend/internal/search"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

type semanticSearcher interface {
	Search(ctx context.Context, query string) search.Result
}

type indexRebuilder interface {
	Rebuild(ctx context.Context) (search.RebuildReport, error)
}

// SemanticSearch always answers 200; failures are carried in responseText.
func SemanticSearch(searcher semanticSearcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search unavailable"))
			return
		}
		res := searcher.Search(r.Context(), validators.PathTerm(r, "search", maxSearchTermRunes))
		responses.WriteSuccess(w, product.SearchResponse{
			ResponseText: res.ResponseText,
			Products:     product.FromModels(res.Products),
		})
	}
}

type rebuildResponse struct {
	Attempted int     `json:"attempted"`
	Indexed   int     `json:"indexed"`
	Failed    []int64 `json:"failed"`
}

func RebuildIndex(rebuilder indexRebuilder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rebuilder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search unavailable"))
			return
		}
		report, err := rebuilder.Rebuild(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		failed := report.Failed
		if failed == nil {
			failed = []int64{}
		}
		responses.WriteSuccess(w, rebuildResponse{Attempted: report.Attempted, Indexed: report.Indexed, Failed: failed})
	}
}
