package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/eshoplite-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader  = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// replayable lists the METHOD + route pattern pairs that honor the header.
// The header stays optional: callers without a key create on every call.
var replayable = map[string]bool{
	http.MethodPost + " /api/payments": true,
	http.MethodPost + " /api/products": true,
}

// storedResponse is what gets replayed for a repeated key.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

type idempotencyGuard struct {
	store pkgredis.ReplayStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the first stored response for a repeated
// Idempotency-Key and answers 409 when the key comes back with another body.
func Idempotency(store pkgredis.ReplayStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *idempotencyGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if g.store == nil || idemKey == "" || !guarded(r.Method, routePattern(r)) {
		next.ServeHTTP(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	hash := bodyHash(body)
	scope := r.Method + "|" + r.URL.Path

	raw, found, err := g.store.Recall(ctx, scope, idemKey)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if found {
		var prior storedResponse
		if err := json.Unmarshal([]byte(raw), &prior); err != nil {
			responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
			return
		}
		if prior.BodyHash != hash {
			responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
			return
		}
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		if prior.Location != "" {
			w.Header().Set("Location", prior.Location)
		}
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
		return
	}

	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	var captured bytes.Buffer
	ww.Tee(&captured)
	next.ServeHTTP(ww, r)

	status := statusOf(ww)
	// 5xx stays uncached so the same key can be retried.
	if status >= http.StatusInternalServerError {
		return
	}
	record, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Location:    ww.Header().Get("Location"),
		Body:        captured.Bytes(),
		BodyHash:    hash,
	})
	if err == nil {
		_, err = g.store.Remember(ctx, scope, idemKey, string(record), g.ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(g.logg.WithField(ctx, "idempotency_key", idemKey), "store idempotency record", err)
	}
}

func guarded(method, pattern string) bool {
	return pattern != "" && replayable[method+" "+pattern]
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
