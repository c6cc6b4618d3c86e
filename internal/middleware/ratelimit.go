package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/audit"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/ratelimit"
	"github.com/recvault/vault-server-go/internal/util"
)

// RateGuard applies fixed-window limits keyed by scope, client IP and any
// extra parts such as a normalized email.
type RateGuard struct {
	limiter *ratelimit.Limiter
}

func NewRateGuard(limiter *ratelimit.Limiter) *RateGuard {
	return &RateGuard{limiter: limiter}
}

func rateKey(scope, ip string, parts []string) string {
	var b strings.Builder
	b.WriteString("rl:")
	b.WriteString(scope)
	b.WriteString(":")
	b.WriteString(ip)
	for _, p := range parts {
		b.WriteString(":")
		b.WriteString(p)
	}
	return b.String()
}

// Check records a hit and returns a RATE_LIMIT_EXCEEDED error once the
// window's limit is used up.
func (g *RateGuard) Check(r *http.Request, scope string, limit int, window time.Duration, parts ...string) error {
	ip := util.ClientIP(r)
	result := g.limiter.Allow(r.Context(), rateKey(scope, ip, parts), limit, window)
	if result.Allowed {
		return nil
	}

	log.Warn().Str("scope", scope).Str("ip", ip).Msg("rate limit exceeded")
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventRateLimitExceed,
		Details: map[string]any{"scope": scope},
	})
	return apperrors.RateLimited("Too many requests. Please try again later.", result.ResetAt)
}

// PerIP limits every request through the handler by client IP alone.
func (g *RateGuard) PerIP(scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Check(r, scope, limit, window); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
