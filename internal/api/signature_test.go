package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"event": "pirep.filed", "data": {}}`)

	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
}

func TestVerifySignatureRejects(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"event": "pirep.filed", "data": {}}`)
	valid := sign(secret, body)

	// Flip one nibble so the altered digest is guaranteed to differ
	altered := []byte(valid)
	if altered[0] == '0' {
		altered[0] = '1'
	} else {
		altered[0] = '0'
	}

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
	}{
		{"wrong secret", "other-secret", body, valid},
		{"tampered body", secret, []byte(`{"event": "pirep.rejected", "data": {}}`), valid},
		{"altered signature", secret, body, string(altered)},
		{"missing signature", secret, body, ""},
		{"not hex", secret, body, "not-a-hex-digest"},
		{"empty secret", "", body, sign("", body)},
		{"empty body", secret, nil, valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifySignature(tt.secret, tt.body, tt.signature))
		})
	}
}
