package auth

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestSentinelCategories(t *testing.T) {
	tests := []struct {
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{ErrIdentityNotFound, goerrors.CategoryNotFound, TextCodeIdentityNotFound},
		{ErrMismatchedHashAndPassword, goerrors.CategoryAuth, TextCodeInvalidCreds},
		{ErrAccountBanned, goerrors.CategoryAuth, TextCodeAccountBanned},
		{ErrAlreadyConfirmed, goerrors.CategoryConflict, TextCodeAlreadyConfirmed},
		{ErrInvalidToken, goerrors.CategoryNotFound, TextCodeInvalidToken},
		{ErrTokenExpired, goerrors.CategoryValidation, TextCodeTokenExpired},
		{ErrPasswordAlreadySet, goerrors.CategoryConflict, TextCodePasswordSet},
		{ErrRecoveryLimitExceeded, goerrors.CategoryRateLimit, TextCodeRecoveryLimit},
		{ErrNotificationFailed, goerrors.CategoryOperation, TextCodeNotificationFailed},
	}

	for _, tc := range tests {
		t.Run(tc.textCode, func(t *testing.T) {
			assert.Equal(t, tc.category, tc.err.Category)
			assert.Equal(t, tc.textCode, tc.err.TextCode)
		})
	}
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, IsTokenExpiredError(nil))
	assert.True(t, IsTokenExpiredError(ErrTokenExpired))
	assert.True(t, IsTokenExpiredError(fmt.Errorf("upstream: token is expired")))
	assert.False(t, IsTokenExpiredError(errors.New("something else")))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, IsMalformedError(nil))
	assert.True(t, IsMalformedError(ErrTokenMalformed))
	assert.True(t, IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, IsMalformedError(errors.New("something else")))
}
