package signing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWebhookVerifier(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	v := NewWebhookVerifier("webhook-secret-for-tests-012345678", 300*time.Second)
	v.now = func() time.Time { return now }

	ts := func(offset int64) string { return strconv.FormatInt(now.Unix()+offset, 10) }

	tests := []struct {
		name      string
		timestamp string
		signature func(string) string
		want      bool
	}{
		{"valid current timestamp", ts(0), v.Sign, true},
		{"valid at tolerance boundary in past", ts(-300), v.Sign, true},
		{"valid at tolerance boundary in future", ts(300), v.Sign, true},
		{"stale beyond tolerance", ts(-301), v.Sign, false},
		{"future beyond tolerance", ts(301), v.Sign, false},
		{"wrong signature", ts(0), func(string) string { return "deadbeef" }, false},
		{"signature for another timestamp", ts(0), func(string) string { return v.Sign(ts(1)) }, false},
		{"non numeric timestamp", "abc", v.Sign, false},
		{"empty timestamp", "", v.Sign, false},
		{"empty signature", ts(0), func(string) string { return "" }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Verify(tc.timestamp, tc.signature(tc.timestamp)))
		})
	}
}

func TestWebhookSign(t *testing.T) {
	v := NewWebhookVerifier("key", 300*time.Second)
	assert.Len(t, v.Sign("1700000000"), 64)
	assert.Equal(t, v.Sign("1700000000"), v.Sign("1700000000"))
}
