package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the claims contract carried by a signed session token.
type AuthClaims interface {
	Subject() string
	Username() string
	Email() string
	Roles() []RoleType
	HasRole(role RoleType) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The subject is
// the account email, mirroring the rest of the identifier namespace.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserName  string         `json:"username,omitempty"`
	UserEmail string         `json:"email,omitempty"`
	UserRoles []RoleType     `json:"roles,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Username returns the username claim
func (c *JWTClaims) Username() string {
	return c.UserName
}

// Email returns the email claim, falling back to the subject
func (c *JWTClaims) Email() string {
	if c.UserEmail != "" {
		return c.UserEmail
	}
	return c.Subject()
}

// Roles returns the granted roles
func (c *JWTClaims) Roles() []RoleType {
	return c.UserRoles
}

// HasRole checks role membership on the claims
func (c *JWTClaims) HasRole(role RoleType) bool {
	for _, r := range c.UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
