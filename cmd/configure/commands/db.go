package commands

import (
	"fmt"
	"os"

	"github.com/RedRangerWentWild/IITR1/internal/config"
	"github.com/RedRangerWentWild/IITR1/internal/database"
)

// openDB loads configuration and connects. The caller closes the returned DB.
func openDB() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
