package auth

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims represents the token issued by the external identity
// provider. The subject carries the stable user id; email is optional and
// best-effort.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the stable user identifier carried in the subject claim.
func (c *IdentityClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
