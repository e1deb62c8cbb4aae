package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
)

// QueryInt reads an optional integer query parameter. Only the format is
// checked; callers clamp out-of-range values themselves.
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": name})
	}
	return n, nil
}

// PathID parses a positive integer route parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// PathTerm returns a trimmed route parameter cut to at most maxRunes runes.
func PathTerm(r *http.Request, name string, maxRunes int) string {
	term := strings.TrimSpace(chi.URLParam(r, name))
	if maxRunes <= 0 || utf8.RuneCountInString(term) <= maxRunes {
		return term
	}
	return string([]rune(term)[:maxRunes])
}
