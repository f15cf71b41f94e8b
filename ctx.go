package auth

import "context"

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}
var requestMetaCtxKey = &contextKey{"request_meta"}

type contextKey struct {
	name string
}

// RequestMeta carries caller information captured by the transport layer
// for session audit purposes.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta sets the RequestMeta in the given context
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaCtxKey, meta)
}

// RequestMetaFromContext finds the RequestMeta from the context.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	raw, ok := ctx.Value(requestMetaCtxKey).(RequestMeta)
	return raw, ok
}

// WithContext sets the User in the given context
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}
