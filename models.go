package auth

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleType is a role granted to a user
type RoleType = string

const (
	// RoleUser is the default role for a regular account
	RoleUser RoleType = "user"
	// RoleAffiliate is an account enrolled in the affiliate program
	RoleAffiliate RoleType = "affiliate"
	// RoleAdmin is an administrative account
	RoleAdmin RoleType = "admin"
	// RoleBanned marks an account that can no longer authenticate
	RoleBanned RoleType = "banned"
)

// Default token lifecycle policy. See DESIGN.md for how the resend
// cooldown constant was chosen.
const (
	// ConfirmationTokenTTL is how long an email confirmation token stays valid
	ConfirmationTokenTTL = 24 * time.Hour
	// RecoveryTokenTTL is how long a password recovery token stays valid
	RecoveryTokenTTL = 30 * time.Minute
	// TokenResendCooldown is the minimum interval between token (re)issues
	TokenResendCooldown = 10 * time.Minute
	// RecoveryRequestCooldown caps recovery issuance at one per account per day
	RecoveryRequestCooldown = 24 * time.Hour
	// MaxRecoveryTries is the number of recovery attempts before lockout
	MaxRecoveryTries = 5
)

// TokenState tracks a single ephemeral secret attached to a user record.
// A zero value means no token has ever been issued. The invariant is that
// a non empty Token always carries an ExpiresAt.
type TokenState struct {
	Token        string     `bun:"token" json:"-"`
	ExpiresAt    *time.Time `bun:"token_expires_at,nullzero" json:"token_expires_at,omitempty"`
	LastIssuedAt *time.Time `bun:"last_token_created_at,nullzero" json:"last_token_created_at,omitempty"`
}

// Issue overwrites the current token with a new value. Allowed from any state.
func (t *TokenState) Issue(token string, ttl time.Duration) {
	now := time.Now()
	expires := now.Add(ttl)
	t.Token = token
	t.ExpiresAt = &expires
	t.LastIssuedAt = &now
}

// Active reports whether a live, unexpired token exists.
func (t *TokenState) Active() bool {
	return t.Token != "" && !t.IsExpired()
}

// IsExpired reports whether the current token is no longer usable.
func (t *TokenState) IsExpired() bool {
	if t.Token == "" || t.ExpiresAt == nil {
		return true
	}
	return t.ExpiresAt.Before(time.Now())
}

// IsValid reports whether candidate matches the live token. Comparison is
// constant time so a lookup path cannot leak prefix information.
func (t *TokenState) IsValid(candidate string) bool {
	if t.Token == "" || candidate == "" || t.IsExpired() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.Token), []byte(candidate)) == 1
}

// Consume clears the token value but keeps LastIssuedAt so cooldown
// accounting survives consumption.
func (t *TokenState) Consume() {
	t.Token = ""
	t.ExpiresAt = nil
}

// Clear resets the token state entirely.
func (t *TokenState) Clear() {
	t.Token = ""
	t.ExpiresAt = nil
	t.LastIssuedAt = nil
}

// CanReissueAfter returns the instant after which a new token may be issued
// for resend purposes. Expiry and cooldown are independent clocks.
func (t *TokenState) CanReissueAfter() time.Time {
	if t.LastIssuedAt == nil {
		return time.Now()
	}
	return t.LastIssuedAt.Add(TokenResendCooldown)
}

// EmailConfirmation is the confirmation slot of a user record.
type EmailConfirmation struct {
	TokenState

	Confirmed   bool       `bun:"confirmed,notnull,default:false" json:"confirmed"`
	ConfirmedAt *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
}

// MarkConfirmed stamps the confirmation. The token value stays in place so
// a replayed magic link resolves to this account and is reported as
// already confirmed; the replay path retires the token at that point.
func (c *EmailConfirmation) MarkConfirmed() {
	c.Confirmed = true
	now := time.Now()
	c.ConfirmedAt = &now
}

// PasswordRecovery is the recovery slot of a user record.
type PasswordRecovery struct {
	TokenState

	RecoveredAt *time.Time `bun:"last,nullzero" json:"recovered_at,omitempty"`
	Tries       int        `bun:"tries,notnull,default:0" json:"tries"`
}

// IncrementTries bumps the attempt counter and reports whether the account
// is still under the recovery attempt cap.
func (r *PasswordRecovery) IncrementTries() bool {
	r.Tries++
	return r.Tries <= MaxRecoveryTries
}

// MarkRecovered consumes the live token, resets the attempt counter and
// stamps the successful recovery.
func (r *PasswordRecovery) MarkRecovered() {
	r.Consume()
	r.Tries = 0
	now := time.Now()
	r.RecoveredAt = &now
}

// User is the persisted identity record. Username and email share a single
// identifier namespace: uniqueness is enforced across both columns.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username     string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email        string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string         `bun:"password_hash" json:"-"`
	Roles        []RoleType     `bun:"roles" json:"roles,omitempty"`
	Metadata     map[string]any `bun:"metadata" json:"metadata,omitempty"`

	EmailConfirmation EmailConfirmation `bun:"embed:email_confirmation_" json:"email_confirmation"`
	PasswordRecovery  PasswordRecovery  `bun:"embed:password_recover_" json:"password_recovery"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether a password has been defined. A user without
// one is a magic link only account awaiting its first password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasRole checks role membership.
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole grants a role if not already present.
func (u *User) AddRole(role RoleType) *User {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	return u
}

// IsBanned reports whether the account holds the banned role.
func (u *User) IsBanned() bool {
	return u.HasRole(RoleBanned)
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}
