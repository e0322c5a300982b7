package neos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingFavoritesDatabase = errors.New("database handle is required")
	// ErrMissingUserEmail rejects favorites operations without an identity.
	ErrMissingUserEmail = errors.New("neos: user email is required")
	// ErrMissingNEOName rejects favorites operations without a subject NEO.
	ErrMissingNEOName = errors.New("neos: neo name is required")
)

// FavoritesServiceConfig describes the dependencies of the favorites store.
type FavoritesServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// FavoritesService manages a user's saved NEO snapshots.
type FavoritesService struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewFavoritesService constructs the favorites store.
func NewFavoritesService(cfg FavoritesServiceConfig) (*FavoritesService, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("neos: %w", errMissingFavoritesDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &FavoritesService{db: cfg.Database, clock: clock}, nil
}

// Save upserts a favorite. Favoriting the same NEO again refreshes the
// snapshot columns instead of creating a second row.
func (s *FavoritesService) Save(ctx context.Context, userEmail string, record NEO) error {
	if strings.TrimSpace(userEmail) == "" {
		return ErrMissingUserEmail
	}
	if strings.TrimSpace(record.Name) == "" {
		return ErrMissingNEOName
	}

	favorite := FavoriteNEO{
		UserEmail:    userEmail,
		Name:         record.Name,
		Diameter:     record.Diameter,
		Speed:        record.Speed,
		MissDistance: record.MissDistance,
		Date:         record.Date,
		CreatedAt:    s.clock().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"diameter", "speed", "miss_distance", "date"}),
		}).
		Create(&favorite).Error
}

// Remove deletes a favorite. Removing an absent favorite is a no-op.
func (s *FavoritesService) Remove(ctx context.Context, userEmail, neoName string) error {
	if strings.TrimSpace(userEmail) == "" {
		return ErrMissingUserEmail
	}
	if strings.TrimSpace(neoName) == "" {
		return ErrMissingNEOName
	}
	return s.db.WithContext(ctx).
		Where("user_email = ? AND name = ?", userEmail, neoName).
		Delete(&FavoriteNEO{}).Error
}

// List returns the user's favorites, most recently saved first.
func (s *FavoritesService) List(ctx context.Context, userEmail string) ([]FavoriteNEO, error) {
	if strings.TrimSpace(userEmail) == "" {
		return nil, ErrMissingUserEmail
	}
	var favorites []FavoriteNEO
	if err := s.db.WithContext(ctx).
		Where("user_email = ?", userEmail).
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		return nil, err
	}
	return favorites, nil
}

// Get returns one saved favorite by name.
func (s *FavoritesService) Get(ctx context.Context, userEmail, neoName string) (FavoriteNEO, error) {
	if strings.TrimSpace(userEmail) == "" {
		return FavoriteNEO{}, ErrMissingUserEmail
	}
	if strings.TrimSpace(neoName) == "" {
		return FavoriteNEO{}, ErrMissingNEOName
	}
	var favorite FavoriteNEO
	err := s.db.WithContext(ctx).
		Where("user_email = ? AND name = ?", userEmail, neoName).
		Take(&favorite).Error
	return favorite, err
}

// CountFavorites reports the number of currently favorited NEOs. It backs the
// favorites_count achievement requirement, so unfavorited rows never count.
func (s *FavoritesService) CountFavorites(ctx context.Context, userEmail string) (int64, error) {
	if strings.TrimSpace(userEmail) == "" {
		return 0, ErrMissingUserEmail
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&FavoriteNEO{}).
		Where("user_email = ?", userEmail).
		Count(&count).Error
	return count, err
}

// IsNotFound reports whether err represents a missing favorite row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
