package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/audit"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/signing"
)

const (
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
)

// WebhookSignatureMiddleware admits a webhook only when X-Signature is the
// HMAC of a fresh X-Timestamp. The body is left unread.
type WebhookSignatureMiddleware struct {
	verifier *signing.WebhookVerifier
}

func NewWebhookSignatureMiddleware(verifier *signing.WebhookVerifier) *WebhookSignatureMiddleware {
	return &WebhookSignatureMiddleware{verifier: verifier}
}

func (m *WebhookSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(SignatureHeader)
		timestamp := r.Header.Get(TimestampHeader)

		reason := ""
		switch {
		case signature == "" || timestamp == "":
			reason = "missing_headers"
		case !m.verifier.Verify(timestamp, signature):
			reason = "invalid_signature"
		}

		if reason != "" {
			log.Warn().Str("reason", reason).Str("path", r.URL.Path).Msg("webhook rejected")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventWebhookRejected,
				Details: map[string]any{"reason": reason},
			})
			writeError(w, apperrors.Unauthorized("Invalid webhook signature"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
