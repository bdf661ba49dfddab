package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/allegro/bigcache/v3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	Store struct {
		db    *sql.DB
		posts *bigcache.BigCache
		now   func() time.Time
	}
)

//go:embed migrations/*.sql
var migrations embed.FS

func openDatabase(ctx context.Context, file string) (*sql.DB, error) {
	err := os.MkdirAll(filepath.Dir(file), 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory to store %v, cause %w", file, err)
	}
	connstr := fmt.Sprintf("file:%v?_foreign_keys=true&_journal=wal&_busy_timeout=5000&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping database %v, cause %v", file, err)
	}
	return conn, nil
}

// Open loads the database stored at file, creating it and applying every
// pending migration when needed.
func Open(ctx context.Context, file string) (*Store, error) {
	conn, err := openDatabase(ctx, file)
	if err != nil {
		return nil, err
	}
	err = migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to migrate %v, cause %w", file, err)
	}
	cache, err := bigcache.NewBigCache(postCacheConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to allocate post cache, cause %w", err)
	}
	return &Store{db: conn, posts: cache, now: time.Now}, nil
}

func postCacheConfig() bigcache.Config {
	cfg := bigcache.DefaultConfig(10 * time.Minute)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 4096
	cfg.MaxEntrySize = 2048
	cfg.HardMaxCacheSize = 64
	cfg.Verbose = false
	return cfg
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// IsEmpty returns true when no user was ever registered, which is the
// only moment the bootstrap administrator may be provisioned.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("unable to count users, cause %w", err)
	}
	return count == 0, nil
}

func (s *Store) Close() error {
	s.posts.Close()
	return s.db.Close()
}
