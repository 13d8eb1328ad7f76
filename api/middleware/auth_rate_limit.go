package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/api/responses"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

// RateLimiterStore counts attempts in an expiring window under namespaced keys.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy throttles one auth surface per client IP and per account.
type AuthRateLimitPolicy struct {
	name         string
	window       time.Duration
	ipLimit      int64
	accountLimit int64
}

// NewAuthRateLimitPolicy builds a policy. A zero limit disables that bucket.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, accountLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:         name,
		window:       window,
		ipLimit:      int64(ipLimit),
		accountLimit: int64(accountLimit),
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.accountLimit > 0)
}

func (p AuthRateLimitPolicy) scope(bucket, value string) string {
	return bucket + ":" + p.name + ":" + value
}

type rateBucket struct {
	scope string
	value string
	limit int64
}

// AuthRateLimit counts every attempt, successful or not, against the IP and the account
// named in the body (email, falling back to username).
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets := make([]rateBucket, 0, 2)
			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					buckets = append(buckets, rateBucket{scope: "ip", value: ip, limit: policy.ipLimit})
				}
			}
			if policy.accountLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if account := accountFromBody(body); account != "" {
					buckets = append(buckets, rateBucket{scope: "account", value: hashValue(account), limit: policy.accountLimit})
				}
			}

			for _, b := range buckets {
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.scope(b.scope, b.value)), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > b.limit {
					rejectRateLimited(ctx, logg, w, policy, b, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, b rateBucket, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"scope":          b.scope,
			"attempts":       count,
			"limit":          b.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts. Try again later."))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func accountFromBody(payload []byte) string {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
		return email
	}
	if username := strings.ToLower(strings.TrimSpace(body.Username)); username != "" {
		return "user:" + username
	}
	return ""
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
