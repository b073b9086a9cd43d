// internal/auth/token.go
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session credential payload: it binds a participant to one
// lobby of one game. The token is stateless; nothing is persisted and every
// use is re-verified against the signature.
type Claims struct {
	ParticipantID string `json:"participantId"`
	LobbyID       string `json:"lobbyId"`
	Game          string `json:"game"`
}

// Codec signs and verifies session tokens with HMAC-SHA256. All server
// processes of one deployment share the same secret so a token minted by
// any process verifies on any other.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec using the given shared secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

type tokenClaims struct {
	Data Claims `json:"data"`
	jwt.RegisteredClaims
}

// Sign issues a token for the given claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Data: claims})
	return token.SignedString(c.secret)
}

// Verify parses and validates a token string, returning its claims.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var parsed tokenClaims
	t, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return parsed.Data, nil
}
