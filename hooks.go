package auth

import "context"

// SignupHooks are optional extension points fired by Signup so an embedding
// application can customize the persisted record without forking the
// service. Every field is optional; a nil hook is a no-op.
//
// Order: BeforeValidation, AfterValidation, BeforeSave, AfterSave. OnError
// fires once with the original error whenever any step fails.
type SignupHooks struct {
	BeforeValidation func(ctx context.Context, user *User, req *SignupRequest) error
	AfterValidation  func(ctx context.Context, user *User, req *SignupRequest) error
	BeforeSave       func(ctx context.Context, user *User, req *SignupRequest) error
	AfterSave        func(ctx context.Context, user *User, req *SignupRequest) error
	OnError          func(ctx context.Context, err error, user *User, req *SignupRequest)
}

func (h *SignupHooks) beforeValidation(ctx context.Context, user *User, req *SignupRequest) error {
	if h == nil || h.BeforeValidation == nil {
		return nil
	}
	return h.BeforeValidation(ctx, user, req)
}

func (h *SignupHooks) afterValidation(ctx context.Context, user *User, req *SignupRequest) error {
	if h == nil || h.AfterValidation == nil {
		return nil
	}
	return h.AfterValidation(ctx, user, req)
}

func (h *SignupHooks) beforeSave(ctx context.Context, user *User, req *SignupRequest) error {
	if h == nil || h.BeforeSave == nil {
		return nil
	}
	return h.BeforeSave(ctx, user, req)
}

func (h *SignupHooks) afterSave(ctx context.Context, user *User, req *SignupRequest) error {
	if h == nil || h.AfterSave == nil {
		return nil
	}
	return h.AfterSave(ctx, user, req)
}

func (h *SignupHooks) onError(ctx context.Context, err error, user *User, req *SignupRequest) {
	if h == nil || h.OnError == nil {
		return
	}
	h.OnError(ctx, err, user, req)
}
