package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/tcmhub/wechat-login-bridge/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// envelopeClaims are managed by the codec itself and stripped before a
// payload is patched and re-signed.
var envelopeClaims = []string{"iat", "exp", "nbf"}

// Codec signs and verifies the compact session tokens handed to the login
// client. Tokens are HS256 JWTs with a fixed expiry baked in at signing.
//
// The handshake path signs each token with its own correlation key as the
// HMAC secret. That binds token to key without a server-held secret, but it
// means the token proves nothing to a party that already knows the key (the
// key is displayed on screen as the QR scene or typed code). The correlation
// store stays the source of truth for status; the token is a convenience
// binding only.
type Codec struct {
	ttl time.Duration
}

// NewCodec creates a codec issuing tokens valid for ttl
func NewCodec(ttl time.Duration) *Codec {
	return &Codec{ttl: ttl}
}

// Sign creates a signed token from the payload claims. The expiry envelope
// (iat/exp) is added by the codec; payload values under those names are
// overwritten.
func (c *Codec) Sign(payload jwt.MapClaims, secret string) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}

	now := NowTimeFunc()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(c.ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
// Returns ErrInvalidToken on signature mismatch or expiry.
func (c *Codec) Verify(tokenString, secret string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// Update verifies an existing token, strips the signature envelope, merges
// the patch into the payload, and re-signs with a fresh expiry. Fails with
// ErrInvalidToken if the original token does not verify.
func (c *Codec) Update(tokenString, secret string, patch jwt.MapClaims) (string, error) {
	claims, err := c.Verify(tokenString, secret)
	if err != nil {
		return "", err
	}

	for _, name := range envelopeClaims {
		delete(claims, name)
	}
	for k, v := range patch {
		claims[k] = v
	}

	return c.Sign(claims, secret)
}
