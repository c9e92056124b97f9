package bootstrap

import (
	"fmt"

	"github.com/charmbracelet/log"

	"essops/internal/config"
	"essops/internal/database"
)

// SetupStore opens the admin store selected by cfg, migrates it and seeds
// the default admin account. It returns the store dialect.
func SetupStore(cfg config.Console) (string, error) {
	dialector, err := database.OpenDialector(cfg.DBDriver, cfg.DBPath, cfg.DBDSN)
	if err != nil {
		return "", err
	}

	if _, err := database.SetupDB(
		database.WithDialector(dialector),
		database.WithDefaultAdmin(cfg.AdminUsername, cfg.AdminPassword),
	); err != nil {
		return "", fmt.Errorf("failed to set up admin store: %w", err)
	}

	location := cfg.DBPath
	if dialector.Name() != database.DriverSQLite {
		location = "dsn"
	}
	log.Info("Admin store ready", "driver", dialector.Name(), "location", location)
	return dialector.Name(), nil
}
