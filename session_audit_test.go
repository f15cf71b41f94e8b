package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAuditRecordOrigins(t *testing.T) {
	store := newMemSessionLogs()
	audit := NewSessionAuditService(store)

	user := &User{ID: uuid.New(), Username: "kaique", Email: "kaiq@gmail.com"}
	admin := &User{ID: uuid.New(), Username: "root", Email: "root@example.com"}

	ctx := WithRequestMeta(context.Background(), RequestMeta{
		IPAddress: "203.0.113.7",
		UserAgent: "audit-test/1.0",
	})

	require.NoError(t, audit.RecordLogin(ctx, user))
	require.NoError(t, audit.RecordRefresh(ctx, user))
	require.NoError(t, audit.RecordImpersonation(ctx, user, admin))

	history, err := audit.History(ctx, user.ID, SessionHistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 3)

	byOrigin := map[SessionOrigin]*SessionLog{}
	for _, entry := range history {
		byOrigin[entry.Origin] = entry
		assert.Equal(t, user.ID, entry.UserID)
		assert.Equal(t, "203.0.113.7", entry.IPAddress)
		assert.Equal(t, "audit-test/1.0", entry.UserAgent)
	}

	require.Contains(t, byOrigin, SessionOriginLogin)
	require.Contains(t, byOrigin, SessionOriginRefresh)
	require.Contains(t, byOrigin, SessionOriginImpersonating)

	assert.Nil(t, byOrigin[SessionOriginLogin].PerformedByID)
	require.NotNil(t, byOrigin[SessionOriginImpersonating].PerformedByID)
	assert.Equal(t, admin.ID, *byOrigin[SessionOriginImpersonating].PerformedByID)
}

func TestSessionAuditRequiresInputs(t *testing.T) {
	audit := NewSessionAuditService(newMemSessionLogs())
	ctx := context.Background()

	assert.Error(t, audit.RecordLogin(ctx, nil))
	assert.Error(t, audit.RecordImpersonation(ctx, &User{ID: uuid.New()}, nil))
}

func TestSessionAuditMissingRequestMeta(t *testing.T) {
	store := newMemSessionLogs()
	audit := NewSessionAuditService(store)

	user := &User{ID: uuid.New()}
	require.NoError(t, audit.RecordLogin(context.Background(), user))

	history, err := audit.History(context.Background(), user.ID, SessionHistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].IPAddress)
	assert.Empty(t, history[0].UserAgent)
}

func TestSessionHistoryPagination(t *testing.T) {
	store := newMemSessionLogs()
	audit := NewSessionAuditService(store)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		_, err := store.Create(ctx, &SessionLog{
			UserID:    userID,
			Origin:    SessionOriginLogin,
			CreatedAt: &at,
		})
		require.NoError(t, err)
	}

	t.Run("page size is clamped", func(t *testing.T) {
		history, err := audit.History(ctx, userID, SessionHistoryQuery{PerPage: 500})
		require.NoError(t, err)
		assert.Len(t, history, MaxSessionHistoryPageSize)
	})

	t.Run("defaults apply", func(t *testing.T) {
		history, err := audit.History(ctx, userID, SessionHistoryQuery{})
		require.NoError(t, err)
		assert.Len(t, history, DefaultSessionHistoryPageSize)
	})

	t.Run("newest first", func(t *testing.T) {
		history, err := audit.History(ctx, userID, SessionHistoryQuery{PerPage: 10})
		require.NoError(t, err)
		require.Len(t, history, 10)
		for i := 1; i < len(history); i++ {
			assert.False(t, history[i].CreatedAt.After(*history[i-1].CreatedAt))
		}
	})

	t.Run("pages do not overlap", func(t *testing.T) {
		first, err := audit.History(ctx, userID, SessionHistoryQuery{Page: 0, PerPage: 25})
		require.NoError(t, err)
		second, err := audit.History(ctx, userID, SessionHistoryQuery{Page: 1, PerPage: 25})
		require.NoError(t, err)
		require.Len(t, first, 25)
		require.Len(t, second, 25)

		seen := map[uuid.UUID]bool{}
		for _, entry := range append(first, second...) {
			assert.False(t, seen[entry.ID], "entry %s appeared twice", entry.ID)
			seen[entry.ID] = true
		}
	})

	t.Run("time window filters", func(t *testing.T) {
		start := base.Add(10 * time.Second)
		end := base.Add(19 * time.Second)
		history, err := audit.History(ctx, userID, SessionHistoryQuery{
			PerPage: MaxSessionHistoryPageSize,
			Start:   &start,
			End:     &end,
		})
		require.NoError(t, err)
		assert.Len(t, history, 10)
	})

	t.Run("other accounts are not visible", func(t *testing.T) {
		history, err := audit.History(ctx, uuid.New(), SessionHistoryQuery{})
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}
