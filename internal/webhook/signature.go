package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// ErrMissingSecret indicates the webhook shared secret is unconfigured. This
// is a server configuration failure, not an authentication failure.
var ErrMissingSecret = errors.New("webhook secret not configured")

// Sign computes the hex-encoded HMAC-SHA512 of body under secret. The
// provider signs the exact bytes it transmits, so callers must pass the raw
// request body and never a re-serialized copy.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the HMAC-SHA512 of body under
// secret. The comparison is constant-time.
func Verify(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}
