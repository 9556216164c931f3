package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/otdoges/zapdev-sub005/api/responses"
	"github.com/otdoges/zapdev-sub005/pkg/config"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit throttles billing endpoints per authenticated user with a fixed
// window counter. A Redis outage fails open; throttling is protection, not a
// correctness guarantee.
func RateLimit(cfg config.RateLimitConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.BillingLimit <= 0 || cfg.BillingWindow <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(ctx, "billing:"+userID, int64(cfg.BillingLimit), cfg.BillingWindow)
			if err != nil {
				if logg != nil {
					logg.Warn(ctx, "rate limit check failed, allowing request: "+err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"count": count, "limit": cfg.BillingLimit})
					logg.Warn(ctx, "billing rate limit exceeded")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many billing requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
