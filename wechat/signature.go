package wechat

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature computes the callback signature the platform expects: the shared
// token, timestamp and nonce sorted lexicographically, concatenated, SHA-1
// hashed, hex encoded.
func Signature(token, timestamp, nonce string) string {
	params := []string{token, timestamp, nonce}
	sort.Strings(params)

	sum := sha1.Sum([]byte(strings.Join(params, "")))
	return hex.EncodeToString(sum[:])
}

// ValidateSignature checks a provider-supplied signature against the shared
// token. Constant-time comparison; the protocol doesn't demand it, but the
// token is a long-lived shared secret.
func ValidateSignature(token, timestamp, nonce, signature string) bool {
	expected := Signature(token, timestamp, nonce)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
