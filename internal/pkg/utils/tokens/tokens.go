package tokens

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// InvitePrefix marks invite tokens sent in emails.
const InvitePrefix = "inv_"

// New returns a random token "<prefix><secret>" and its secret part.
func New(prefix string) (raw string, secret string, err error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	secret = base64.RawURLEncoding.EncodeToString(b)
	return prefix + secret, secret, nil
}

func ParseToken(raw, prefix string) (secret string, ok bool) {
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	secret = strings.TrimPrefix(raw, prefix)
	return secret, secret != ""
}

// HMAC256Hex is the indexed lookup value of a secret (64 hex chars).
func HMAC256Hex(pepper, secret string) string {
	m := hmac.New(sha256.New, []byte(pepper))
	m.Write([]byte(secret))
	return hex.EncodeToString(m.Sum(nil))
}
