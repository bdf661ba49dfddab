package auth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
)

type (
	// Directory is the user record collaborator.
	Directory interface {
		CreateUser(ctx context.Context, nu store.NewUser) (store.User, error)
		LookupUser(ctx context.Context, id string) (store.User, error)
		LookupUserByName(ctx context.Context, username string) (store.User, error)
	}
)

// Register validates the credentials, hashes the password and stores the
// new user. Validation failures never reach the hasher or the directory.
func Register(ctx context.Context, dir Directory, rnd io.Reader, username string, passwd PlainText, role Role) (store.User, error) {
	audit := logutil.Audit(ctx)
	if err := validateCredentials(username, passwd); err != nil {
		return store.User{}, err
	}
	record, err := HashCredential(rnd, passwd)
	if err != nil {
		return store.User{}, err
	}
	u, err := dir.CreateUser(ctx, store.NewUser{
		Username:   username,
		Credential: string(record),
		Admin:      role == RoleAdmin,
	})
	var dup store.DuplicateUsername
	if errors.As(err, &dup) {
		audit.Warn().Str("event", EventRegistrationFailure).Str("username", username).Str("reason", "duplicate").Msg("Registration rejected")
		return store.User{}, DuplicateIdentity{Username: username}
	} else if err != nil {
		audit.Error().Err(err).Str("event", EventRegistrationFailure).Str("username", username).Msg("Registration failed")
		return store.User{}, fmt.Errorf("auth: unable to register %v, cause %w", username, err)
	}
	audit.Info().Str("event", EventRegistrationSuccess).Str("username", username).Str("user_id", u.ID).Str("role", role.String()).Msg("User registered")
	return u, nil
}
