package auth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// emailPattern accepts the local-part@domain shape. Stricter RFC parsing is
// left to the mail transport, which sees the address anyway.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// Validate checks a signup request before any persistence or notification
// takes place.
func (r SignupRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Email,
			validation.Required,
			validation.Match(emailPattern).Error("must be a valid email address"),
		),
	)
	if err == nil {
		return nil
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup request").
		WithTextCode("INVALID_SIGNUP_REQUEST")
}
