package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// NewOpaqueToken mints a cryptographically random, single use secret for
// magic links and recovery mails.
func NewOpaqueToken() string {
	return uuid.NewString()
}

// SignedSession is a freshly issued session credential.
type SignedSession struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService signs and validates session credentials.
type TokenService interface {
	SignSession(user *User, extraClaims map[string]any) (SignedSession, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	sessionDuration time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(opts Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      []byte(opts.GetSigningKey()),
		sessionDuration: opts.GetSessionDuration(),
		issuer:          opts.GetIssuer(),
		audience:        opts.GetAudience(),
		logger:          logger,
	}
}

// SignSession issues a time boxed session token for the given user. Claims
// carry the subject (email), username, roles, and email alongside the
// registered issued at and expiry.
func (ts *TokenServiceImpl) SignSession(user *User, extraClaims map[string]any) (SignedSession, error) {
	if user == nil {
		return SignedSession{}, errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	expiresAt := now.Add(ts.sessionDuration)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.Email,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserName:  user.Username,
		UserEmail: user.Email,
		UserRoles: user.Roles,
	}

	if len(extraClaims) > 0 {
		claims.Metadata = extraClaims
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return SignedSession{}, err
	}

	return SignedSession{Token: token, ExpiresAt: expiresAt}, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenEmpty
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method alg=%v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, errors.Wrap(err, ErrTokenUnsupported.Category, ErrTokenUnsupported.Message).
				WithTextCode(ErrTokenUnsupported.TextCode)
		}
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}
