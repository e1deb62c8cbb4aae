package controllers

import (
	"net/http"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

// maxSearchTermRunes caps both keyword and semantic search input.
const maxSearchTermRunes = 200

func fail(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	responses.WriteError(r.Context(), logg, w, err)
}

// unwired answers 500 for a handler built without its service.
func unwired(w http.ResponseWriter, r *http.Request, logg *logger.Logger, what string) {
	fail(w, r, logg, pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable"))
}
