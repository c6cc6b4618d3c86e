package signing

import (
	"strconv"
	"time"

	"github.com/recvault/vault-server-go/internal/util"
)

// WebhookVerifier checks X-Signature = hex(HMAC-SHA256(secret, X-Timestamp))
// and that the timestamp is within tolerance of now.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: tolerance, now: time.Now}
}

// Sign is the sender side of the scheme, used by clients and tests.
func (v *WebhookVerifier) Sign(timestamp string) string {
	return util.HmacSHA256(v.secret, timestamp)
}

// Verify evaluates both the signature and the freshness check on every call
// and only reports their conjunction.
func (v *WebhookVerifier) Verify(timestamp, signature string) bool {
	fresh := false
	if ts, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		delta := v.now().Unix() - ts
		if delta < 0 {
			delta = -delta
		}
		fresh = delta <= int64(v.tolerance/time.Second)
	}

	signed := util.ConstantTimeEqual(v.Sign(timestamp), signature)

	return fresh && signed
}
