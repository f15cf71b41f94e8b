package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store consumed by the Authenticator. Tx variants
// exist so lifecycle transitions can run as a single read-modify-write
// inside one transaction; per account updates are linearizable as long as
// callers stay inside RunInTx.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	GetByRecoveryTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	IdentifierTakenTx(ctx context.Context, tx bun.IDB, identifier string) (bool, error)
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.getOneTx(ctx, tx, "?TableAlias.id = ?", id)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getOneTx(ctx, tx, "?TableAlias.email = ?", email)
}

// GetByIdentifier resolves a login identifier against the shared
// username/email namespace, trying the most specific column first.
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound()
	}

	columns := []string{"username"}
	if isEmail(trimmed) {
		columns = []string{"email", "username"}
	}

	for _, column := range columns {
		record, err := a.getOneTx(ctx, a.db, "?TableAlias."+column+" = ?", trimmed)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": trimmed,
		})
}

func (a *users) GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getOneTx(ctx, tx, "?TableAlias.email_confirmation_token = ?", token)
}

func (a *users) GetByRecoveryTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getOneTx(ctx, tx, "?TableAlias.password_recover_token = ?", token)
}

// IdentifierTakenTx reports whether the value is already in use as a
// username OR an email by any account. The two columns form one namespace,
// so a new username may not collide with someone else's email and vice
// versa.
func (a *users) IdentifierTakenTx(ctx context.Context, tx bun.IDB, identifier string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ? OR ?TableAlias.email = ?", identifier, identifier).
		Exists(ctx)
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, record)
}

// UpdateTx writes the full row. Token lifecycle transitions clear columns
// back to NULL, which a partial, zero-skipping ORM update cannot express.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return record, nil
}

func (a *users) getOneTx(ctx context.Context, tx bun.IDB, where string, arg any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if len(record.Roles) == 0 {
		record.Roles = []RoleType{RoleUser}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
