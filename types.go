package auth

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetSessionDuration() time.Duration
	GetConfirmationTokenTTL() time.Duration
	GetRecoveryTokenTTL() time.Duration
}

// SimpleConfig is a plain value implementation of Config. Zero duration
// fields fall back to the package defaults.
type SimpleConfig struct {
	SigningKey           string
	Issuer               string
	Audience             []string
	SessionDuration      time.Duration
	ConfirmationTokenTTL time.Duration
	RecoveryTokenTTL     time.Duration
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }
func (c SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetSessionDuration() time.Duration {
	if c.SessionDuration == 0 {
		return 24 * time.Hour
	}
	return c.SessionDuration
}

func (c SimpleConfig) GetConfirmationTokenTTL() time.Duration {
	if c.ConfirmationTokenTTL == 0 {
		return ConfirmationTokenTTL
	}
	return c.ConfirmationTokenTTL
}

func (c SimpleConfig) GetRecoveryTokenTTL() time.Duration {
	if c.RecoveryTokenTTL == 0 {
		return RecoveryTokenTTL
	}
	return c.RecoveryTokenTTL
}

var _ Config = SimpleConfig{}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
