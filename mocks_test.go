package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// memUsers is an in memory Users store for service level tests. Records
// are cloned on the way in and out so mutations only become visible
// through Update, same as with a real database.
type memUsers struct {
	mu      sync.Mutex
	records map[uuid.UUID]*User
}

var _ Users = (*memUsers)(nil)

func newMemUsers() *memUsers {
	return &memUsers{records: map[uuid.UUID]*User{}}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]RoleType(nil), u.Roles...)
	if u.Metadata != nil {
		out.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func (m *memUsers) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.records {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *memUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return m.GetByID(ctx, id)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	return m.find(func(u *User) bool { return u.Email == email })
}

func (m *memUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return m.GetByEmail(ctx, email)
}

func (m *memUsers) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return m.find(func(u *User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

func (m *memUsers) GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return m.find(func(u *User) bool {
		return token != "" && u.EmailConfirmation.Token == token
	})
}

func (m *memUsers) GetByRecoveryTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return m.find(func(u *User) bool {
		return token != "" && u.PasswordRecovery.Token == token
	})
}

func (m *memUsers) IdentifierTakenTx(ctx context.Context, tx bun.IDB, identifier string) (bool, error) {
	_, err := m.GetByIdentifier(ctx, identifier)
	if err == nil {
		return true, nil
	}
	if repository.IsRecordNotFound(err) {
		return false, nil
	}
	return false, err
}

func (m *memUsers) Create(ctx context.Context, record *User) (*User, error) {
	return m.CreateTx(ctx, nil, record)
}

func (m *memUsers) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if len(record.Roles) == 0 {
		record.Roles = []RoleType{RoleUser}
	}
	now := time.Now()
	record.CreatedAt = &now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = cloneUser(record)
	return record, nil
}

func (m *memUsers) Update(ctx context.Context, record *User) (*User, error) {
	return m.UpdateTx(ctx, nil, record)
}

func (m *memUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; !ok {
		return nil, repository.NewRecordNotFound()
	}
	now := time.Now()
	record.UpdatedAt = &now
	m.records[record.ID] = cloneUser(record)
	return record, nil
}

// mustGet reads the stored record straight from the map, panicking when the
// id is unknown. Test helper only.
func (m *memUsers) mustGet(id uuid.UUID) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.records[id]
	if !ok {
		panic("memUsers: unknown id " + id.String())
	}
	return cloneUser(u)
}

// put stores the record directly, bypassing Create defaults.
func (m *memUsers) put(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.records[u.ID] = cloneUser(u)
}

// memSessionLogs is an in memory SessionLogs store.
type memSessionLogs struct {
	mu      sync.Mutex
	entries []*SessionLog
}

var _ SessionLogs = (*memSessionLogs)(nil)

func newMemSessionLogs() *memSessionLogs {
	return &memSessionLogs{}
}

func (m *memSessionLogs) Create(ctx context.Context, record *SessionLog) (*SessionLog, error) {
	return m.CreateTx(ctx, nil, record)
}

func (m *memSessionLogs) CreateTx(ctx context.Context, tx bun.IDB, record *SessionLog) (*SessionLog, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
	entry := *record

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, &entry)
	return record, nil
}

func (m *memSessionLogs) History(ctx context.Context, userID uuid.UUID, q SessionHistoryQuery) ([]*SessionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*SessionLog
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if q.Start != nil && e.CreatedAt.Before(*q.Start) {
			continue
		}
		if q.End != nil && e.CreatedAt.After(*q.End) {
			continue
		}
		entry := *e
		matched = append(matched, &entry)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(*matched[j].CreatedAt)
	})

	offset := q.offset()
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]

	if limit := q.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// fakeRepo wires the in memory stores behind the RepositoryManager
// interface. RunInTx simply runs the function; the fakes have no
// transaction semantics to honor.
type fakeRepo struct {
	users       *memUsers
	sessionLogs *memSessionLogs
}

var _ RepositoryManager = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       newMemUsers(),
		sessionLogs: newMemSessionLogs(),
	}
}

func (f *fakeRepo) Validate() error { return nil }
func (f *fakeRepo) MustValidate()   {}

func (f *fakeRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f *fakeRepo) Users() Users             { return f.users }
func (f *fakeRepo) SessionLogs() SessionLogs { return f.sessionLogs }

type sentMail struct {
	Email string
	Token string
}

// recordingNotifier captures outgoing mail and can be told to fail.
type recordingNotifier struct {
	mu               sync.Mutex
	confirmations    []sentMail
	recoveries       []sentMail
	failConfirmation error
	failRecovery     error
}

var _ Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) SendConfirmation(_ context.Context, user *User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failConfirmation != nil {
		return n.failConfirmation
	}
	n.confirmations = append(n.confirmations, sentMail{Email: user.Email, Token: token})
	return nil
}

func (n *recordingNotifier) SendRecovery(_ context.Context, user *User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failRecovery != nil {
		return n.failRecovery
	}
	n.recoveries = append(n.recoveries, sentMail{Email: user.Email, Token: token})
	return nil
}

func (n *recordingNotifier) sentConfirmations() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.confirmations...)
}

func (n *recordingNotifier) sentRecoveries() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.recoveries...)
}

// captureLogger renders calls through fmt so tests can assert that format
// strings line up with their arguments.
type captureLogger struct {
	mu   sync.Mutex
	msgs []string
}

var _ Logger = (*captureLogger)(nil)

func (l *captureLogger) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Debug(format string, args ...any) { l.logf(format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.logf(format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.logf(format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.logf(format, args...) }

func (l *captureLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func newTestAuthenticator() (*Authenticator, *fakeRepo, *recordingNotifier) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	auther := NewAuthenticator(repo, SimpleConfig{
		SigningKey: "test-signing-key",
		Issuer:     "auth-test",
	}).WithNotifier(notifier)
	return auther, repo, notifier
}
