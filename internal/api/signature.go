package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request
// body, computed by vAMSYS with the per-route shared secret.
const SignatureHeader = "X-Vamsys-Signature"

// VerifySignature checks a claimed signature against the HMAC-SHA256 of
// the exact raw body bytes. The body must be the untransformed request
// body; re-serializing parsed JSON can change it byte-for-byte and break
// verification. Comparison is constant-time. A missing signature or
// empty body never verifies.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" || len(body) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
