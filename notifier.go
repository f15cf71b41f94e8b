package auth

import "context"

// Notifier delivers confirmation and recovery messages carrying a token or
// magic link. Template content and delivery mechanics live with the caller.
type Notifier interface {
	SendConfirmation(ctx context.Context, user *User, token string) error
	SendRecovery(ctx context.Context, user *User, token string) error
}

// logNotifier is the development fallback: it prints the magic link instead
// of delivering mail.
type logNotifier struct {
	logger Logger
}

func (n logNotifier) SendConfirmation(_ context.Context, user *User, token string) error {
	n.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	n.logger.Info("to: %s", user.Email)
	n.logger.Info("link: /confirm-email/%s", token)
	return nil
}

func (n logNotifier) SendRecovery(_ context.Context, user *User, token string) error {
	n.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	n.logger.Info("to: %s", user.Email)
	n.logger.Info("link: /password-recovery/%s", token)
	return nil
}
