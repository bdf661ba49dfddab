package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type (
	// User is the persisted identity record. Credential holds the opaque
	// record produced by the credential hasher and is never plaintext.
	User struct {
		ID         string
		Username   string
		Credential string
		Admin      bool
		CreatedAt  time.Time
	}

	NewUser struct {
		Username   string
		Credential string
		Admin      bool
	}
)

// CreateUser inserts a new user, uniqueness of the username is enforced by
// the database and reported as DuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	u := User{
		ID:         uuid.NewString(),
		Username:   nu.Username,
		Credential: nu.Credential,
		Admin:      nu.Admin,
		CreatedAt:  s.now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx, `insert into users(user_id, username, credential, is_admin, created_at) values (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Credential, u.Admin, u.CreatedAt.Unix())
	if isUniqueViolation(err) {
		return User{}, DuplicateUsername{Username: nu.Username}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to store user %v, cause %w", nu.Username, err)
	}
	return u, nil
}

func (s *Store) LookupUser(ctx context.Context, id string) (User, error) {
	return s.scanUser(ctx, id, `select user_id, username, credential, is_admin, created_at from users where user_id = ?`, id)
}

func (s *Store) LookupUserByName(ctx context.Context, username string) (User, error) {
	return s.scanUser(ctx, username, `select user_id, username, credential, is_admin, created_at from users where username = ?`, username)
}

// SetAdmin changes the role of an existing user.
func (s *Store) SetAdmin(ctx context.Context, username string, admin bool) error {
	res, err := s.db.ExecContext(ctx, `update users set is_admin = ? where username = ?`, admin, username)
	if err != nil {
		return fmt.Errorf("unable to update role of %v, cause %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update role of %v, cause %w", username, err)
	} else if n == 0 {
		return UserNotFound{Key: username}
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `select user_id, username, credential, is_admin, created_at from users order by username asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list users, cause %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		var created int64
		err = rows.Scan(&u.ID, &u.Username, &u.Credential, &u.Admin, &created)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user, cause %w", err)
		}
		u.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) scanUser(ctx context.Context, key string, query string, args ...interface{}) (User, error) {
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.Credential, &u.Admin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, UserNotFound{Key: key}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user %v, cause %w", key, err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
