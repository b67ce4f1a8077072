package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// RunMigrations brings the membership schema up to the latest version.
// It opens its own short-lived connection so migration state never shares
// the repository pool.
func RunMigrations(databaseURL string, migrationsPath string) error {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer conn.Close()

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// A dirty row means a previous run died mid-migration. Clearing the
	// flag retries that migration; its statements must stay re-runnable.
	if version, dirty, err := m.Version(); err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	} else if dirty {
		log.Printf("[DB] ⚠️ Schema dirty at version %d, clearing flag and retrying", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to clear dirty migration state: %w", err)
		}
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("[DB] Schema already up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Printf("[DB] ✅ Schema migrated to version %d", version)
	return nil
}
