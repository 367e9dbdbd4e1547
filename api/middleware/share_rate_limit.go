package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julienlmr/gameshelf-backend/api/responses"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// ShareRateLimit throttles the public wishlist surface per client IP and per
// share token. The token is taken from the URL when present, otherwise from
// the JSON body.
func ShareRateLimit(cfg config.ShareConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.RateLimitWindow <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if cfg.RateLimitPerIP > 0 && ip != "" {
				key := store.RateLimitKey(fmt.Sprintf("share:ip:%s", ip))
				if allowed, count, err := allow(ctx, store, key, cfg.RateLimitWindow, int64(cfg.RateLimitPerIP)); err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				} else if !allowed {
					logShareRateLimited(ctx, logg, "ip", ip, count, cfg.RateLimitPerIP, cfg.RateLimitWindow)
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}

			if cfg.RateLimitPerTkn > 0 {
				token := shareTokenFromRequest(r)
				if token != "" {
					key := store.RateLimitKey(fmt.Sprintf("share:token:%s", hashValue(token)))
					if allowed, count, err := allow(ctx, store, key, cfg.RateLimitWindow, int64(cfg.RateLimitPerTkn)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						logShareRateLimited(ctx, logg, "token", "", count, cfg.RateLimitPerTkn, cfg.RateLimitWindow)
						responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func shareTokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(chi.URLParam(r, "token")); token != "" {
		return token
	}
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Token)
}

func logShareRateLimited(ctx context.Context, logg *logger.Logger, scope, ip string, count int64, limit int, window time.Duration) {
	if logg == nil {
		return
	}
	fields := map[string]any{
		"scope":          scope,
		"attempts":       count,
		"limit":          limit,
		"window_seconds": int(window.Seconds()),
	}
	if ip != "" {
		fields["ip"] = ip
	}
	logCtx := logg.WithFields(ctx, fields)
	logg.Warn(logCtx, "share.rate_limit.blocked")
}
