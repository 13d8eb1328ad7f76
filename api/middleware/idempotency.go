package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/garage-backend/api/responses"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/garage-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	defaultIdempotencyTTL   = 24 * time.Hour
	stockMovingIdempotency  = 7 * 24 * time.Hour
	pendingIdempotencyClaim = 2 * time.Minute
)

// idempotentRoutes lists the creates that must carry an Idempotency-Key. Patterns use chi
// syntax; {param} segments match any single path segment.
var idempotentRoutes = map[string]time.Duration{
	"/api/v1/auth/register":              defaultIdempotencyTTL,
	"/api/v1/owners":                     defaultIdempotencyTTL,
	"/api/v1/vehicles":                   defaultIdempotencyTTL,
	"/api/v1/task-templates":             defaultIdempotencyTTL,
	"/api/v1/inventory":                  defaultIdempotencyTTL,
	"/api/v1/reports":                    stockMovingIdempotency,
	"/api/v1/reports/{reportId}/parts":   stockMovingIdempotency,
	"/api/v1/reports/{reportId}/invoice": stockMovingIdempotency,
}

// idempotencyRecord is either a pending claim (Status 0) or a completed 2xx response.
type idempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

func (r idempotencyRecord) pending() bool { return r.Status == 0 }

// Idempotency replays the first successful response for a key. A key is claimed before the
// handler runs so a concurrent duplicate cannot move stock twice; failed attempts release it.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok {
				// Group middleware runs before chi has resolved the full pattern.
				ttl, ok = routeTTL(r.Method, r.URL.Path)
			}
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			claim, _ := json.Marshal(idempotencyRecord{RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), pendingIdempotencyClaim)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, logg, store, w, key, hash)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			if status < 200 || status >= 300 {
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "idempotency.release_failed", err)
				}
				return
			}

			payload, err := json.Marshal(idempotencyRecord{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: hash,
			})
			if err == nil {
				err = store.Set(ctx, key, string(payload), ttl)
			}
			if err != nil {
				logError(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, w http.ResponseWriter, key, hash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// The claim expired or was released between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.pending():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if method != http.MethodPost || path == "" {
		return 0, false
	}
	if ttl, ok := idempotentRoutes[path]; ok {
		return ttl, true
	}
	for pattern, ttl := range idempotentRoutes {
		if segmentsMatch(pattern, path) {
			return ttl, true
		}
	}
	return 0, false
}

// segmentsMatch compares a chi pattern with a concrete path segment by segment.
func segmentsMatch(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
