// Package auth implements the account and credential lifecycle for a
// user-facing service: signup with a magic link email confirmation, first
// password definition, password recovery, login over a shared
// username/email namespace, JWT session issuance, and a session audit log.
//
// Accounts are created without a password. Until the email address is
// confirmed and a first password is defined, login fails exactly the way
// it fails for a wrong password. Confirmation and recovery both run on
// single use opaque tokens with an expiry, an issuance cooldown, and, for
// recovery, a per token attempt cap.
//
// All state lives behind RepositoryManager, whose stores are backed by
// bun. Every lifecycle transition runs as one read-modify-write
// transaction through RunInTx, so concurrent operations on the same
// account serialize instead of interleaving.
//
// Typical wiring:
//
//	repo := auth.NewRepositoryManager(db)
//	auther := auth.NewAuthenticator(repo, auth.SimpleConfig{
//		SigningKey: signingKey,
//	}).WithNotifier(mailer)
//
//	if err := auther.Signup(ctx, auth.SignupRequest{
//		Username: "kaique",
//		Email:    "kaiq@gmail.com",
//	}); err != nil {
//		return err
//	}
package auth
