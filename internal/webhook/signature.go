// internal/webhook/signature.go
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the header GitHub sends the payload signature in.
const SignatureHeader = "X-Hub-Signature-256"

// Sign computes the hex HMAC-SHA256 digest of body, in the "sha256=<hex>"
// form GitHub uses.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the HMAC-SHA256 digest of the raw
// request body under secret. The comparison is constant-time. The body must
// be the bytes exactly as received, never a re-serialized document.
func Verify(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}
