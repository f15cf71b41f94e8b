package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MaxSessionHistoryPageSize is enforced server side no matter what the
// caller requests.
const MaxSessionHistoryPageSize = 50

// DefaultSessionHistoryPageSize is used when the caller does not specify one.
const DefaultSessionHistoryPageSize = 20

// SessionHistoryQuery is a paginated, time windowed query over an account's
// session log, newest first.
type SessionHistoryQuery struct {
	Page    int
	PerPage int
	Start   *time.Time
	End     *time.Time
}

func (q SessionHistoryQuery) limit() int {
	if q.PerPage <= 0 {
		return DefaultSessionHistoryPageSize
	}
	if q.PerPage > MaxSessionHistoryPageSize {
		return MaxSessionHistoryPageSize
	}
	return q.PerPage
}

func (q SessionHistoryQuery) offset() int {
	if q.Page <= 0 {
		return 0
	}
	return q.Page * q.limit()
}

// SessionLogs is the append only store for session audit entries.
type SessionLogs interface {
	Create(ctx context.Context, record *SessionLog) (*SessionLog, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *SessionLog) (*SessionLog, error)
	History(ctx context.Context, userID uuid.UUID, q SessionHistoryQuery) ([]*SessionLog, error)
}

type sessionLogs struct {
	repository.Repository[*SessionLog]
	db *bun.DB
}

var _ SessionLogs = (*sessionLogs)(nil)

// NewSessionLogsRepository returns the bun backed SessionLogs store.
func NewSessionLogsRepository(db *bun.DB) SessionLogs {
	repo := repository.NewRepository[*SessionLog](db, repository.ModelHandlers[*SessionLog]{
		NewRecord: func() *SessionLog { return &SessionLog{} },
		GetID: func(l *SessionLog) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *SessionLog, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &sessionLogs{
		Repository: repo,
		db:         db,
	}
}

func (s *sessionLogs) Create(ctx context.Context, record *SessionLog) (*SessionLog, error) {
	return s.CreateTx(ctx, s.db, record)
}

func (s *sessionLogs) CreateTx(ctx context.Context, tx bun.IDB, record *SessionLog) (*SessionLog, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
	return s.Repository.CreateTx(ctx, tx, record)
}

func (s *sessionLogs) History(ctx context.Context, userID uuid.UUID, q SessionHistoryQuery) ([]*SessionLog, error) {
	var records []*SessionLog

	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID)

	if q.Start != nil {
		query = query.Where("?TableAlias.created_at >= ?", q.Start)
	}
	if q.End != nil {
		query = query.Where("?TableAlias.created_at <= ?", q.End)
	}

	err := query.
		OrderExpr("?TableAlias.created_at DESC").
		Limit(q.limit()).
		Offset(q.offset()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
