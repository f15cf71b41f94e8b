package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes exposed to API clients alongside structured errors.
const (
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountBanned      = "ACCOUNT_BANNED"
	TextCodeAlreadyConfirmed   = "EMAIL_ALREADY_CONFIRMED"
	TextCodeEmailNotConfirmed  = "EMAIL_NOT_CONFIRMED"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenUnsupported   = "TOKEN_UNSUPPORTED"
	TextCodeTokenEmpty         = "TOKEN_EMPTY"
	TextCodePasswordSet        = "PASSWORD_ALREADY_SET"
	TextCodeRecoveryLimit      = "RECOVERY_LIMIT_EXCEEDED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeNotificationFailed = "NOTIFICATION_FAILED"
)

// ErrIdentityNotFound is returned when no account matches a lookup.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is the single externally visible login
// failure. Unknown user and wrong password render identically so callers
// cannot enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrAccountBanned is returned when a banned account tries to authenticate.
var ErrAccountBanned = goerrors.New("account is banned", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountBanned)

// ErrAlreadyConfirmed is returned when confirmation is attempted on an
// already confirmed account.
var ErrAlreadyConfirmed = goerrors.New("email address has already been confirmed", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyConfirmed).
	WithCode(goerrors.CodeConflict)

// ErrEmailNotConfirmed is returned when an operation requires a confirmed
// email address.
var ErrEmailNotConfirmed = goerrors.New("email address has not been confirmed", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmailNotConfirmed)

// ErrInvalidToken is returned when no account matches the presented token.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned when the presented token is past its expiry.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned when a session token cannot be parsed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenUnsupported is returned when a session token uses an unexpected
// signing method or layout.
var ErrTokenUnsupported = goerrors.New("token is unsupported", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenUnsupported)

// ErrTokenEmpty is returned when an empty session token is presented.
var ErrTokenEmpty = goerrors.New("token is empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenEmpty)

// ErrPasswordAlreadySet is returned when a first password definition is
// attempted on an account that already has one. The operation is strictly
// one time per account.
var ErrPasswordAlreadySet = goerrors.New("password has already been defined", goerrors.CategoryConflict).
	WithTextCode(TextCodePasswordSet).
	WithCode(goerrors.CodeConflict)

// ErrRecoveryLimitExceeded is returned when the recovery attempt counter
// goes past MaxRecoveryTries.
var ErrRecoveryLimitExceeded = goerrors.New("too many password recovery attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRecoveryLimit)

// ErrNoEmptyString is returned when an empty password is offered for hashing.
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrNotificationFailed wraps delivery collaborator failures. The record is
// persisted before dispatch, so the caller can retry via the resend flow.
var ErrNotificationFailed = goerrors.New("could not deliver notification", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotificationFailed)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
