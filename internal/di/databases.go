package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/dealdesk/internal/config"
	"github.com/aristath/dealdesk/internal/database"
	"github.com/rs/zerolog"
)

// recordStoreFile is the record store's file name inside the data directory
const recordStoreFile = "crm.db"

// InitializeDatabases opens the record store and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, recordStoreFile),
		Profile: database.ProfileDurable,
		Name:    "crm",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crm database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate crm database: %w", err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Record store ready")
	return container, nil
}
