package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionAuditService appends login affecting events to the session log.
// Entries are independent of the token lifecycle and never coordinate
// across records.
type SessionAuditService struct {
	store  SessionLogs
	logger Logger
}

// NewSessionAuditService creates a recorder over the given store.
func NewSessionAuditService(store SessionLogs) *SessionAuditService {
	return &SessionAuditService{
		store:  store,
		logger: defLogger{},
	}
}

func (s *SessionAuditService) WithLogger(logger Logger) *SessionAuditService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// RecordLogin appends a LOGIN entry. Caller IP and user agent are read from
// the request metadata carried by the context.
func (s *SessionAuditService) RecordLogin(ctx context.Context, user *User) error {
	return s.record(ctx, user, SessionOriginLogin, nil)
}

// RecordRefresh appends a REFRESH entry.
func (s *SessionAuditService) RecordRefresh(ctx context.Context, user *User) error {
	return s.record(ctx, user, SessionOriginRefresh, nil)
}

// RecordImpersonation appends an IMPERSONATING entry naming the performer.
func (s *SessionAuditService) RecordImpersonation(ctx context.Context, user, performer *User) error {
	if performer == nil {
		return goerrors.New("impersonation requires a performing account", goerrors.CategoryBadInput)
	}
	performerID := performer.ID
	return s.record(ctx, user, SessionOriginImpersonating, &performerID)
}

// History returns the account's session log, newest first. The page size is
// clamped to MaxSessionHistoryPageSize regardless of the caller request.
func (s *SessionAuditService) History(ctx context.Context, userID uuid.UUID, q SessionHistoryQuery) ([]*SessionLog, error) {
	return s.store.History(ctx, userID, q)
}

func (s *SessionAuditService) record(ctx context.Context, user *User, origin SessionOrigin, performedBy *uuid.UUID) error {
	if user == nil {
		return goerrors.New("session log requires an account", goerrors.CategoryBadInput)
	}

	meta, _ := RequestMetaFromContext(ctx)

	entry := &SessionLog{
		UserID:        user.ID,
		Origin:        origin,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		PerformedByID: performedBy,
	}

	if _, err := s.store.Create(ctx, entry); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record session log entry")
	}

	return nil
}
