package db

import (
	"fmt"

	"github.com/meinhoongagan/homeservice-app/store"
)

// Migrate creates the document table. Run it once per deploy with --migrate.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("migrate: database not initialized")
	}
	if err := store.Migrate(DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Println("✅ Migrations applied successfully!")
	return nil
}
