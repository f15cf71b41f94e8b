package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionOrigin identifies the kind of event that produced a session log entry.
type SessionOrigin = string

const (
	// SessionOriginLogin is a credential based login
	SessionOriginLogin SessionOrigin = "LOGIN"
	// SessionOriginRefresh is a session token refresh
	SessionOriginRefresh SessionOrigin = "REFRESH"
	// SessionOriginImpersonating is a session opened on behalf of another account
	SessionOriginImpersonating SessionOrigin = "IMPERSONATING"
)

// SessionLog is an append only record of a login affecting event. Entries
// are never mutated or deleted once written.
type SessionLog struct {
	bun.BaseModel `bun:"table:user_session_logs,alias:usl"`

	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID     `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User         `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Origin        SessionOrigin `bun:"origin,notnull" json:"origin,omitempty"`
	IPAddress     string        `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string        `bun:"user_agent" json:"user_agent,omitempty"`
	PerformedByID *uuid.UUID    `bun:"performed_by_id,nullzero,type:uuid" json:"performed_by_id,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
