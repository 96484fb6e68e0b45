package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyWebhookHMAC checks a Shopify webhook signature against the shared
// secret. The digest is computed over the exact raw request bytes; hashing
// a re-serialized parse of the body would break every signature.
// Comparison is constant-time.
func VerifyWebhookHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
