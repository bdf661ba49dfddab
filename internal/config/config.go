// Package config holds the runtime configuration of a quill process.
//
// A Config is filled once from flags and environment (see cmdflags) and then
// converted into the read-only settings consumed by the auth and httpserver
// packages.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/andrebq/quill/auth"
	"github.com/andrebq/quill/internal/httpserver"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		Bind     string
		Database string
		// AuditLog is the append-only audit file, empty sends audit events
		// to the process logger.
		AuditLog string

		SessionTTL time.Duration
		// InsecureCookie drops the Secure attribute from the session cookie,
		// only useful for local development over plain http.
		InsecureCookie bool
		FrameOptions   string

		AdminPasswordEnvVar string

		LogLevel  string
		LogPretty bool
	}
)

const (
	DefaultBind     = "localhost:7010"
	DefaultDatabase = "quill.db"
	DefaultLogLevel = "info"
)

var (
	errInvalidTTL   = errors.New("config: session ttl must be positive")
	errMissingBind  = errors.New("config: missing bind address")
	errMissingStore = errors.New("config: missing database path")
)

func Default() Config {
	return Config{
		Bind:                DefaultBind,
		Database:            DefaultDatabase,
		SessionTTL:          auth.DefaultSessionTTL,
		FrameOptions:        httpserver.DefaultHeaderPolicy().FrameOptions,
		AdminPasswordEnvVar: auth.AdminPasswordEnvVar,
		LogLevel:            DefaultLogLevel,
	}
}

// LoadDotEnv loads the given dotenv files into the process environment.
// Variables already present are kept and missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("config: unable to load %v, cause %w", f, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Bind == "":
		return errMissingBind
	case c.Database == "":
		return errMissingStore
	case c.SessionTTL <= 0:
		return errInvalidTTL
	}
	return nil
}

// SessionSettings generates a fresh process key. Sessions minted with any
// previous key stop resolving.
func (c Config) SessionSettings(rnd io.Reader) (auth.Settings, error) {
	key, err := auth.NewProcessKey(rnd)
	if err != nil {
		return auth.Settings{}, err
	}
	return auth.Settings{
		Key:  key,
		TTL:  c.SessionTTL,
		Rand: rnd,
	}, nil
}

func (c Config) HeaderPolicy() *httpserver.HeaderPolicy {
	p := httpserver.DefaultHeaderPolicy()
	if c.FrameOptions != "" {
		p.FrameOptions = c.FrameOptions
	}
	return &p
}
