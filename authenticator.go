package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecoveryAdvisoryMessage is the single response body for every password
// recovery request outcome. Keeping it byte identical across found,
// unknown, unconfirmed, cooldown and already-active outcomes prevents
// account enumeration through the recovery endpoint.
const RecoveryAdvisoryMessage = "If the address is registered and confirmed, a recovery email is on its way. The limit is one recovery every 24 hours."

// SignupRequest carries the desired identity for a new account. A password
// is deliberately absent: accounts become able to log in only after email
// confirmation and a first password definition.
type SignupRequest struct {
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Roles    []RoleType     `json:"roles,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Hooks    *SignupHooks   `json:"-"`
}

// ResendEmailResponse reports the outcome of a confirmation resend request.
// When the cooldown is still running, After carries the instant a new
// token may be issued and no state was mutated.
type ResendEmailResponse struct {
	Message string    `json:"message"`
	After   time.Time `json:"after,omitempty"`
	Resent  bool      `json:"resent"`
}

// RecoverEmailResponse is the advisory returned by RequestRecovery.
type RecoverEmailResponse struct {
	Message string `json:"message"`
}

// Authenticator orchestrates the account and token lifecycle: signup,
// login, email confirmation, first password definition, and password
// recovery. All mutation of a user record happens here, inside a single
// read-modify-write transaction per call, so token transitions for one
// account never interleave.
type Authenticator struct {
	repo            RepositoryManager
	tokens          TokenService
	notifier        Notifier
	audit           *SessionAuditService
	logger          Logger
	confirmationTTL time.Duration
	recoveryTTL     time.Duration
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Authenticator {
	logger := defLogger{}

	return &Authenticator{
		repo:            repo,
		tokens:          NewTokenService(opts, logger),
		notifier:        logNotifier{logger},
		audit:           NewSessionAuditService(repo.SessionLogs()),
		logger:          logger,
		confirmationTTL: opts.GetConfirmationTokenTTL(),
		recoveryTTL:     opts.GetRecoveryTokenTTL(),
	}
}

func (s *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNotifier sets the delivery collaborator used for confirmation and
// recovery mail.
func (s *Authenticator) WithNotifier(notifier Notifier) *Authenticator {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

// WithTokenService overrides the session token service.
func (s *Authenticator) WithTokenService(tokens TokenService) *Authenticator {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithSessionAudit overrides the session audit recorder.
func (s *Authenticator) WithSessionAudit(audit *SessionAuditService) *Authenticator {
	if audit != nil {
		s.audit = audit
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Authenticator) TokenService() TokenService {
	return s.tokens
}

// SessionAudit returns the session audit recorder.
func (s *Authenticator) SessionAudit() *SessionAuditService {
	return s.audit
}

// Signup registers a new account and dispatches a confirmation magic link.
// The record is persisted with the token already issued and no password;
// mail goes out only after the transaction commits, so a delivery failure
// leaves a durable record the caller can retry through ResendConfirmation.
func (s *Authenticator) Signup(ctx context.Context, req SignupRequest) (err error) {
	user := &User{
		Roles:    req.Roles,
		Metadata: req.Metadata,
	}

	defer func() {
		if err != nil {
			req.Hooks.onError(ctx, err, user, &req)
		}
	}()

	if err = req.Hooks.beforeValidation(ctx, user, &req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "signup rejected by custom validation")
	}

	// trim after the hook had its chance to mutate the request so the
	// identifiers are validated and persisted in their canonical form
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err = req.Validate(); err != nil {
		return err
	}

	if err = req.Hooks.afterValidation(ctx, user, &req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "signup rejected by custom validation")
	}

	user.Username = req.Username
	user.Email = req.Email

	token := NewOpaqueToken()
	user.EmailConfirmation.Issue(token, s.confirmationTTL)

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := s.repo.Users().IdentifierTakenTx(ctx, tx, user.Username)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}
		if taken {
			return goerrors.New("username already exists", goerrors.CategoryConflict).
				WithTextCode("USERNAME_TAKEN").
				WithCode(goerrors.CodeConflict)
		}

		taken, err = s.repo.Users().IdentifierTakenTx(ctx, tx, user.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return goerrors.New("email already exists", goerrors.CategoryConflict).
				WithTextCode("EMAIL_TAKEN").
				WithCode(goerrors.CodeConflict)
		}

		if err := req.Hooks.beforeSave(ctx, user, &req); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "signup aborted by before-save hook")
		}

		if _, err := s.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err = req.Hooks.afterSave(ctx, user, &req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "after-save hook failed")
	}

	if err = s.notifier.SendConfirmation(ctx, user, token); err != nil {
		s.logger.Error("signup confirmation delivery failed email=%s error=%v", user.Email, err)
		err = goerrors.Wrap(err, ErrNotificationFailed.Category, ErrNotificationFailed.Message).
			WithTextCode(ErrNotificationFailed.TextCode)
		return err
	}

	return nil
}

// Login verifies credentials against the shared username/email namespace
// and issues a signed session token. Unknown identifier, missing password
// and wrong password are indistinguishable to the caller.
func (s *Authenticator) Login(ctx context.Context, identifier, password string) (SignedSession, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return SignedSession{}, ErrMismatchedHashAndPassword
		}
		return SignedSession{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if user.IsBanned() {
		return SignedSession{}, ErrAccountBanned
	}

	if !user.HasPassword() {
		// account awaiting its first password: not usable for login yet
		return SignedSession{}, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return SignedSession{}, ErrMismatchedHashAndPassword
		}
		return SignedSession{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
	}

	session, err := s.tokens.SignSession(user, nil)
	if err != nil {
		return SignedSession{}, err
	}

	if err := s.audit.RecordLogin(ctx, user); err != nil {
		s.logger.Warn("failed to record login session user_id=%s error=%v", user.ID.String(), err)
	}

	return session, nil
}

// Impersonate issues a session token for the target account on behalf of
// an authenticated performer, recording the event distinctly.
func (s *Authenticator) Impersonate(ctx context.Context, performer *User, identifier string) (SignedSession, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return SignedSession{}, ErrIdentityNotFound
		}
		return SignedSession{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during impersonation")
	}

	if user.IsBanned() {
		return SignedSession{}, ErrAccountBanned
	}

	session, err := s.tokens.SignSession(user, nil)
	if err != nil {
		return SignedSession{}, err
	}

	if err := s.audit.RecordImpersonation(ctx, user, performer); err != nil {
		s.logger.Warn("failed to record impersonated session user_id=%s error=%v", user.ID.String(), err)
	}

	return session, nil
}

// RefreshSession exchanges a still valid session token for a fresh one.
func (s *Authenticator) RefreshSession(ctx context.Context, rawToken string) (SignedSession, error) {
	claims, err := s.tokens.Validate(rawToken)
	if err != nil {
		return SignedSession{}, err
	}

	user, err := s.repo.Users().GetByEmail(ctx, claims.Email())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return SignedSession{}, ErrIdentityNotFound
		}
		return SignedSession{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during refresh")
	}

	if user.IsBanned() {
		return SignedSession{}, ErrAccountBanned
	}

	session, err := s.tokens.SignSession(user, nil)
	if err != nil {
		return SignedSession{}, err
	}

	if err := s.audit.RecordRefresh(ctx, user); err != nil {
		s.logger.Warn("failed to record refresh session user_id=%s error=%v", user.ID.String(), err)
	}

	return session, nil
}

// ResendConfirmation reissues the confirmation token unless the resend
// cooldown is still running. A caller inside the cooldown window gets the
// deadline back and no state change, no mail.
func (s *Authenticator) ResendConfirmation(ctx context.Context, email string) (*ResendEmailResponse, error) {
	resp := &ResendEmailResponse{}

	var notify *User
	var token string

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByEmailTx(ctx, tx, email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation resend")
		}

		if user.EmailConfirmation.Confirmed {
			return ErrAlreadyConfirmed
		}

		if after := user.EmailConfirmation.CanReissueAfter(); after.After(time.Now()) {
			resp.Message = "A confirmation email was sent recently. Try again in a few minutes."
			resp.After = after
			resp.Resent = false
			return nil
		}

		token = NewOpaqueToken()
		user.EmailConfirmation.Issue(token, s.confirmationTTL)

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reissued confirmation token")
		}

		resp.Message = "Confirmation email sent. Check your inbox."
		resp.Resent = true
		notify = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notify != nil {
		if err := s.notifier.SendConfirmation(ctx, notify, token); err != nil {
			s.logger.Error("confirmation resend delivery failed email=%s error=%v", notify.Email, err)
			return nil, goerrors.Wrap(err, ErrNotificationFailed.Category, ErrNotificationFailed.Message).
				WithTextCode(ErrNotificationFailed.TextCode)
		}
	}

	return resp, nil
}

// ConfirmEmail consumes a confirmation token and returns a signed session
// so the account is immediately authenticated. The token is single use: a
// second call with the same value fails with ErrAlreadyConfirmed.
func (s *Authenticator) ConfirmEmail(ctx context.Context, token string) (SignedSession, error) {
	if token == "" {
		return SignedSession{}, goerrors.New("confirmation token is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeTokenEmpty)
	}

	var confirmed *User
	var staleErr error

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByConfirmationTokenTx(ctx, tx, token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for email confirmation")
		}

		if user.EmailConfirmation.Confirmed {
			// replayed or leftover link: retire the token, then report
			// the conflict
			user.EmailConfirmation.Clear()
			if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear stale confirmation token")
			}
			staleErr = ErrAlreadyConfirmed
			return nil
		}

		if user.EmailConfirmation.IsExpired() {
			return ErrTokenExpired
		}

		if !user.EmailConfirmation.IsValid(token) {
			return ErrInvalidToken
		}

		user.EmailConfirmation.MarkConfirmed()
		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist email confirmation")
		}

		confirmed = user
		return nil
	})
	if err != nil {
		return SignedSession{}, err
	}

	if staleErr != nil {
		return SignedSession{}, staleErr
	}

	return s.tokens.SignSession(confirmed, nil)
}

// DefineFirstPassword assigns the account's first password. Strictly one
// time: it fails once a password hash exists.
func (s *Authenticator) DefineFirstPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByIDTx(ctx, tx, id)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password definition")
		}

		if user.HasPassword() {
			return ErrPasswordAlreadySet
		}

		user.PasswordHash = hash
		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist first password")
		}

		return nil
	})
}

// RequestRecovery issues a password recovery token for a confirmed
// account. The advisory response is identical for every non-fault outcome:
// unknown address, unconfirmed account, cooldown running, token already
// active, and fresh issuance all look the same from the outside.
//
// Issuance is rate limited two ways: while a live token exists nothing is
// reissued, and after a token is issued the account is locked out of
// issuance for RecoveryRequestCooldown even once that token expires.
func (s *Authenticator) RequestRecovery(ctx context.Context, email string) (*RecoverEmailResponse, error) {
	resp := &RecoverEmailResponse{Message: RecoveryAdvisoryMessage}

	var notify *User
	var token string

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByEmailTx(ctx, tx, email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password recovery")
		}

		if !user.EmailConfirmation.Confirmed {
			return nil
		}

		recovery := &user.PasswordRecovery

		if recovery.Active() {
			return nil
		}

		if recovery.LastIssuedAt != nil && IsWithinThresholdPeriod(*recovery.LastIssuedAt, RecoveryRequestCooldown) {
			return nil
		}

		token = NewOpaqueToken()
		recovery.Issue(token, s.recoveryTTL)

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovery token")
		}

		notify = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notify != nil {
		if err := s.notifier.SendRecovery(ctx, notify, token); err != nil {
			s.logger.Error("recovery delivery failed email=%s error=%v", notify.Email, err)
			return nil, goerrors.Wrap(err, ErrNotificationFailed.Category, ErrNotificationFailed.Message).
				WithTextCode(ErrNotificationFailed.TextCode)
		}
	}

	return resp, nil
}

// RecoverPassword consumes a recovery token and stores the new password.
// Every attempt against the account burns one try; past MaxRecoveryTries
// the account is locked out of recovery until a new token is issued.
func (s *Authenticator) RecoverPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return goerrors.New("recovery token is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeTokenEmpty)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	var outcome error

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByRecoveryTokenTx(ctx, tx, token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password recovery")
		}

		recovery := &user.PasswordRecovery

		if !recovery.IncrementTries() {
			if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovery attempt")
			}
			outcome = ErrRecoveryLimitExceeded
			return nil
		}

		if recovery.IsExpired() {
			if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovery attempt")
			}
			outcome = ErrTokenExpired
			return nil
		}

		if !recovery.IsValid(token) {
			if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovery attempt")
			}
			outcome = ErrInvalidToken
			return nil
		}

		user.PasswordHash = hash
		recovery.MarkRecovered()

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist recovered password")
		}

		return nil
	})
	if err != nil {
		return err
	}

	return outcome
}
