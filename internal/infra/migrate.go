package infra

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNoChange is returned when the schema is already at the target version.
var ErrNoChange = migrate.ErrNoChange

// Migrate applies the embedded migrations in direction "up" or "down".
func Migrate(dsn, direction string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == "up" {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
