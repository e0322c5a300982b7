package briefing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entryTTL = 24 * time.Hour

var (
	errMissingDatabase = errors.New("briefing: database handle is required")
	// ErrMissingUserEmail rejects cache operations without an identity.
	ErrMissingUserEmail = errors.New("briefing: user email is required")
	// ErrMissingDate rejects cache operations without a calendar day.
	ErrMissingDate = errors.New("briefing: briefing date is required")
	noOpLogger     = zap.NewNop()
)

// Entry is one generated daily briefing, keyed by user and calendar day.
type Entry struct {
	UserEmail    string    `gorm:"column:user_email;primaryKey;size:320;not null"`
	BriefingDate string    `gorm:"column:briefing_date;primaryKey;size:10;not null"`
	Content      string    `gorm:"column:content;type:text;not null"`
	GeneratedAt  time.Time `gorm:"column:generated_at;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "briefing_cache_entries"
}

// ServiceConfig describes dependencies for the briefing cache.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service caches one generated briefing per user per calendar day for 24 hours.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the briefing cache.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// GetOrGenerate returns the cached briefing for (user, day) when present and
// unexpired, reporting a cache hit. On a miss it invokes generate, stores the
// result with a 24-hour expiry, and reports a miss. An expired row is treated
// as absent and overwritten in place.
func (s *Service) GetOrGenerate(ctx context.Context, userEmail, day string, generate func(context.Context) string) (string, bool, error) {
	if strings.TrimSpace(userEmail) == "" {
		return "", false, ErrMissingUserEmail
	}
	if strings.TrimSpace(day) == "" {
		return "", false, ErrMissingDate
	}

	now := s.clock().UTC()

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("user_email = ? AND briefing_date = ?", userEmail, day).
		Take(&entry).Error
	if err == nil && entry.ExpiresAt.After(now) {
		return entry.Content, true, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}

	content := generate(ctx)
	fresh := Entry{
		UserEmail:    userEmail,
		BriefingDate: day,
		Content:      content,
		GeneratedAt:  now,
		ExpiresAt:    now.Add(entryTTL),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "briefing_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "generated_at", "expires_at"}),
		}).
		Create(&fresh).Error; err != nil {
		// The generated text is still good; only the cache write failed.
		s.logger.Warn("briefing cache write failed",
			zap.String("user_email", userEmail),
			zap.String("briefing_date", day),
			zap.Error(err))
	}
	return content, false, nil
}

// PurgeExpired deletes cache rows whose expiry has passed and returns the
// number of rows removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.clock().UTC()).
		Delete(&Entry{})
	return result.RowsAffected, result.Error
}
