// Package sqlite is an auth.TokenStore backed by a SQLite file, so tokens
// survive between runs of short-lived processes such as the CLI.
//
// Access tokens are bearer credentials. Pass WithPassphrase to seal them
// with AES-GCM before they touch the disk.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/aussiebroadwan/zitadelclient/pkg/cryptox"
	_ "modernc.org/sqlite"
)

const saltSize = 16

var (
	// ErrSealed is returned when a row was sealed but the store has no
	// passphrase, or the other way round.
	ErrSealed = errors.New("tokencache: token sealing does not match store configuration")

	// ErrNotMigrated is returned when the schema is not at a version this
	// package knows: ApplyMigrations failed, or a passphrase is configured
	// before it ran and there is no salt to derive a key from.
	ErrNotMigrated = errors.New("tokencache: migrations not applied")
)

var _ auth.TokenStore = (*Store)(nil)

type Store struct {
	db  *sql.DB
	dsn string

	passphrase []byte
	now        func() time.Time

	mu     sync.RWMutex
	sealer *cryptox.Sealer
}

type Option func(*Store)

// WithPassphrase seals stored tokens with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.passphrase = []byte(passphrase)
		}
	}
}

// WithClock replaces time.Now for DeleteExpired and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore opens the database at dsn, normally a file path. Call
// ApplyMigrations before use, or use Open which does both.
//
// ":memory:" does not work: every pooled connection would get its own empty
// database.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:  db,
		dsn: dsn,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open is NewStore followed by ApplyMigrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s, err := NewStore(dsn, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("tokencache: failed to apply migrations: %w", err)
	}

	if err := s.initSealer(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context, key string) (auth.Token, error) {
	var (
		blob      []byte
		sealed    bool
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, sealed, expires_at FROM tokens WHERE cache_key = ?`, key,
	).Scan(&blob, &sealed, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Token{}, auth.ErrTokenNotFound
	}
	if err != nil {
		return auth.Token{}, err
	}

	sealer, err := s.getSealer(ctx)
	if err != nil {
		return auth.Token{}, err
	}
	if sealed != (sealer != nil) {
		return auth.Token{}, ErrSealed
	}

	if sealer != nil {
		blob, err = sealer.Open(blob, []byte(key))
		if err != nil {
			return auth.Token{}, err
		}
	}

	return auth.Token{
		AccessToken: string(blob),
		ExpiresAt:   time.Unix(0, expiresAt).UTC(),
	}, nil
}

func (s *Store) Save(ctx context.Context, key string, tok auth.Token) error {
	sealer, err := s.getSealer(ctx)
	if err != nil {
		return err
	}

	blob := []byte(tok.AccessToken)
	if sealer != nil {
		blob, err = sealer.Seal(blob, []byte(key))
		if err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (cache_key, access_token, sealed, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			access_token = excluded.access_token,
			sealed       = excluded.sealed,
			expires_at   = excluded.expires_at,
			updated_at   = excluded.updated_at`,
		key, blob, sealer != nil, tok.ExpiresAt.UnixNano(), s.now().UnixNano(),
	)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE cache_key = ?`, key)
	return err
}

// DeleteExpired removes tokens that are past their expiry and returns how
// many rows went.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the number of cached tokens, expired or not.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&n)
	return n, err
}

func (s *Store) getSealer(ctx context.Context) (*cryptox.Sealer, error) {
	if s.passphrase == nil {
		return nil, nil
	}

	s.mu.RLock()
	sealer := s.sealer
	s.mu.RUnlock()
	if sealer != nil {
		return sealer, nil
	}

	if err := s.initSealer(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealer, nil
}

// initSealer derives the sealing key from the passphrase and the salt kept
// in cache_meta, creating the salt the first time round.
func (s *Store) initSealer(ctx context.Context) error {
	if s.passphrase == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealer != nil {
		return nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("tokencache: failed to generate salt: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cache_meta (name, value) VALUES ('salt', ?)`, salt,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrNotMigrated, err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_meta WHERE name = 'salt'`,
	).Scan(&salt); err != nil {
		return err
	}

	sealer, err := cryptox.NewSealer(s.passphrase, salt)
	if err != nil {
		return err
	}

	s.sealer = sealer
	return nil
}
