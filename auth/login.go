package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"

	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
)

var (
	decoyOnce   sync.Once
	decoyRecord CredentialRecord
)

// Login checks passwd against the credential stored for username. Unknown
// users, wrong passwords and storage failures are all reported as
// CredentialMismatch.
func Login(ctx context.Context, dir Directory, username string, passwd PlainText) (Identity, error) {
	audit := logutil.Audit(ctx)
	u, err := dir.LookupUserByName(ctx, username)
	if err != nil {
		var notFound store.UserNotFound
		if !errors.As(err, &notFound) {
			logger := logutil.GetOrDefault(ctx)
			logger.Error().Err(err).Msg("Unexpected error when looking up user for login")
		}
		// spend the same time as a real verification
		VerifyCredential(decoy(), passwd)
		audit.Warn().Str("event", EventLoginFailure).Str("username", username).Msg("Failed login")
		return Identity{}, CredentialMismatch{}
	}
	if !VerifyCredential(CredentialRecord(u.Credential), passwd) {
		audit.Warn().Str("event", EventLoginFailure).Str("username", username).Msg("Failed login")
		return Identity{}, CredentialMismatch{}
	}
	id := Identity{ID: u.ID, Username: u.Username, Role: RoleOf(u.Admin)}
	audit.Info().Str("event", EventLoginSuccess).Str("username", u.Username).Str("user_id", u.ID).Msg("User logged in")
	return id, nil
}

// CurrentRole reads the role from the directory, ignoring any snapshot.
// Every failure resolves to RoleOrdinary.
func CurrentRole(ctx context.Context, dir Directory, userID string) Role {
	u, err := dir.LookupUser(ctx, userID)
	if err != nil {
		var notFound store.UserNotFound
		if !errors.As(err, &notFound) {
			logger := logutil.GetOrDefault(ctx)
			logger.Error().Err(err).Str("user_id", userID).Msg("Unable to read current role")
		}
		return RoleOrdinary
	}
	return RoleOf(u.Admin)
}

func decoy() CredentialRecord {
	decoyOnce.Do(func() {
		decoyRecord, _ = HashCredential(rand.Reader, PlainText("decoy password"))
	})
	return decoyRecord
}
