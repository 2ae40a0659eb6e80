package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/zitadelclient/pkg/tokencache/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations creates or upgrades the cache_meta and tokens tables
// from the migrations embedded in the binary. Open calls it before the
// sealer salt is read, so a fresh file is usable straight away.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("token cache migrations: %w", err)
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("token cache migrations: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, s.dsn, driver)
	if err != nil {
		return fmt.Errorf("token cache migrations: %w", err)
	}

	// A cache written by a newer release has a schema version we have no
	// file for; report it rather than running against unknown tables
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrNotMigrated, err)
	}
	return nil
}
