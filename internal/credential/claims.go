package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by Inspect when the token is not a JWT.
var ErrOpaqueToken = errors.New("token is opaque, not a JWT")

// Claims is the informational subset of an access token's payload shown by
// `gwctl whoami`. The signature is NOT verified; the server remains the only
// authority on validity.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	Email     string    `json:"email,omitempty"`
	TokenType string    `json:"type,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Inspect decodes the payload of a JWT access token without verifying it.
func Inspect(raw string) (Claims, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrOpaqueToken, err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrOpaqueToken
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	c.Email, _ = mc["email"].(string)
	c.TokenType, _ = mc["type"].(string)
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.UTC()
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.UTC()
	}
	return c, nil
}
