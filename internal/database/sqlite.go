package database

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/achievements"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/briefing"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection, migrates the schema, and seeds
// the achievement catalog. Seeding is idempotent, so reopening an existing
// database never duplicates or rewrites catalog rows.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&achievements.Interaction{},
		&achievements.Achievement{},
		&achievements.UnlockedAchievement{},
		&neos.FavoriteNEO{},
		&briefing.Entry{},
		&users.Profile{},
	); err != nil {
		return nil, err
	}

	if err := achievements.SeedCatalog(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
