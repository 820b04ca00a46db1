package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

const (
	cookieIssuer   = "tower-server"
	cookieAudience = "tower-web"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
)

// CookieCodec seals session IDs into PASETO v4.local tokens for the session
// cookie. The token carries its own expiry so a tampered or stale cookie is
// rejected before the database is consulted.
type CookieCodec struct {
	symmetricKey paseto.V4SymmetricKey
	lifetime     time.Duration
}

// NewCookieCodec creates a codec from a raw 32-byte key.
func NewCookieCodec(key []byte, lifetime time.Duration) (*CookieCodec, error) {
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("cookie key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &CookieCodec{
		symmetricKey: symmetricKey,
		lifetime:     lifetime,
	}, nil
}

// Encode seals a session ID into an encrypted cookie value.
func (c *CookieCodec) Encode(sessionID string) string {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(cookieIssuer)
	token.SetAudience(cookieAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(c.lifetime))
	token.SetSubject(sessionID)

	return token.V4Encrypt(c.symmetricKey, nil)
}

// Decode opens a cookie value and returns the session ID inside it.
// Returns an error for forged, malformed, or expired tokens.
func (c *CookieCodec) Decode(value string) (string, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(cookieAudience))
	parser.AddRule(paseto.IssuedBy(cookieIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(c.symmetricKey, value, nil)
	if err != nil {
		return "", fmt.Errorf("invalid cookie token: %w", err)
	}

	sessionID, err := token.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token missing subject: %w", err)
	}
	return sessionID, nil
}
