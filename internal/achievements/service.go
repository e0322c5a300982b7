package achievements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase         = errors.New("database handle is required")
	errMissingFavoritesCounter = errors.New("favorites counter is required")
	// ErrMissingUserEmail rejects operations invoked without a resolved
	// identity, so callers can distinguish "not logged in" from zero data.
	ErrMissingUserEmail = errors.New("achievements: user email is required")
	noOpLogger          = zap.NewNop()
)

// ServiceError carries a stable machine-readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "achievements.service.new"
	opRecord           = "achievements.record"
	opEvaluate         = "achievements.evaluate"
	opUserStats        = "achievements.user_stats"
	opUserAchievements = "achievements.user_achievements"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// FavoritesCounter reports how many NEOs a user currently has favorited.
// The favorites store owns its rows; the evaluator only counts them.
type FavoritesCounter interface {
	CountFavorites(ctx context.Context, userEmail string) (int64, error)
}

// ServiceConfig describes the dependencies of the achievement service.
type ServiceConfig struct {
	Database  *gorm.DB
	Favorites FavoritesCounter
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service owns the interaction log and the unlock table. No other component
// writes unlock rows.
type Service struct {
	db        *gorm.DB
	favorites FavoritesCounter
	clock     func() time.Time
	logger    *zap.Logger
}

// NewService constructs the achievement service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Favorites == nil {
		return nil, newServiceError(opServiceNew, "missing_favorites_counter", errMissingFavoritesCounter)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:        cfg.Database,
		favorites: cfg.Favorites,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Record appends one immutable entry to the interaction log. The log is
// descriptive: any kind is stored, including ones the evaluator ignores.
// Callers treat failures as best-effort and never fail the surrounding action.
func (s *Service) Record(ctx context.Context, userEmail string, kind InteractionKind, neoName string) error {
	if strings.TrimSpace(userEmail) == "" {
		return ErrMissingUserEmail
	}

	entry := Interaction{
		UserEmail: userEmail,
		Kind:      string(kind),
		NEOName:   neoName,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opRecord, "insert_failed", err,
			zap.String("user_email", userEmail),
			zap.String("kind", string(kind)))
		return newServiceError(opRecord, "insert_failed", err)
	}
	return nil
}

// Evaluate checks every not-yet-unlocked catalog achievement against the
// user's current counts and returns the ones unlocked by this call. A failure
// while evaluating or persisting one achievement never aborts the others.
func (s *Service) Evaluate(ctx context.Context, userEmail string) ([]Achievement, error) {
	if strings.TrimSpace(userEmail) == "" {
		return nil, ErrMissingUserEmail
	}

	var unlockedKeys []string
	if err := s.db.WithContext(ctx).
		Model(&UnlockedAchievement{}).
		Where("user_email = ?", userEmail).
		Pluck("achievement_key", &unlockedKeys).Error; err != nil {
		s.logError(opEvaluate, "unlocked_query_failed", err, zap.String("user_email", userEmail))
		return nil, newServiceError(opEvaluate, "unlocked_query_failed", err)
	}

	candidates := s.db.WithContext(ctx).Model(&Achievement{})
	if len(unlockedKeys) > 0 {
		candidates = candidates.Where("key NOT IN ?", unlockedKeys)
	}
	var available []Achievement
	if err := candidates.Find(&available).Error; err != nil {
		s.logError(opEvaluate, "catalog_query_failed", err, zap.String("user_email", userEmail))
		return nil, newServiceError(opEvaluate, "catalog_query_failed", err)
	}

	newlyUnlocked := make([]Achievement, 0)
	for _, achievement := range available {
		count, known, err := s.requirementCount(ctx, userEmail, RequirementKind(achievement.RequirementKind))
		if err != nil {
			s.logError(opEvaluate, "count_failed", err,
				zap.String("user_email", userEmail),
				zap.String("achievement", achievement.Key))
			continue
		}
		if !known {
			s.logger.Warn("unknown achievement requirement kind",
				zap.String("achievement", achievement.Key),
				zap.String("requirement_type", achievement.RequirementKind))
			continue
		}
		if count < achievement.Requirement {
			continue
		}

		unlock := UnlockedAchievement{
			UserEmail:      userEmail,
			AchievementKey: achievement.Key,
			UnlockedAt:     s.clock().UTC(),
		}
		result := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&unlock)
		if result.Error != nil {
			s.logError(opEvaluate, "unlock_insert_failed", result.Error,
				zap.String("user_email", userEmail),
				zap.String("achievement", achievement.Key))
			continue
		}
		if result.RowsAffected == 0 {
			// Concurrent unlock of the same pair; not newly unlocked here.
			continue
		}
		newlyUnlocked = append(newlyUnlocked, achievement)
	}

	return newlyUnlocked, nil
}

// UserStats returns the raw counters for a user's profile. Pure read.
func (s *Service) UserStats(ctx context.Context, userEmail string) (UserStats, error) {
	if strings.TrimSpace(userEmail) == "" {
		return UserStats{}, ErrMissingUserEmail
	}

	var stats UserStats
	var err error

	if stats.TotalQuestions, err = s.interactionCount(ctx, userEmail, KindChatQuestion); err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}
	if stats.UniqueNEOsChatted, err = s.distinctNEOCount(ctx, userEmail, KindChatQuestion); err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}
	if stats.FavoritesCount, err = s.favorites.CountFavorites(ctx, userEmail); err != nil {
		return UserStats{}, newServiceError(opUserStats, "favorites_count_failed", err)
	}
	if stats.NEOsViewed, err = s.distinctNEOCount(ctx, userEmail, KindNEOViewed); err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}
	if stats.DailyBriefings, err = s.interactionCount(ctx, userEmail, KindDailyBriefing); err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&UnlockedAchievement{}).
		Where("user_email = ?", userEmail).
		Count(&stats.AchievementsCount).Error; err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}
	if err := s.db.WithContext(ctx).
		Model(&Achievement{}).
		Count(&stats.TotalAchievements).Error; err != nil {
		return UserStats{}, newServiceError(opUserStats, "query_failed", err)
	}

	return stats, nil
}

// UserAchievements splits the catalog into unlocked (most recent first) and
// locked (category, then threshold ascending) for one user. Pure read.
func (s *Service) UserAchievements(ctx context.Context, userEmail string) (UserAchievements, error) {
	if strings.TrimSpace(userEmail) == "" {
		return UserAchievements{}, ErrMissingUserEmail
	}

	var unlocks []UnlockedAchievement
	if err := s.db.WithContext(ctx).
		Where("user_email = ?", userEmail).
		Order("unlocked_at DESC").
		Find(&unlocks).Error; err != nil {
		return UserAchievements{}, newServiceError(opUserAchievements, "unlocked_query_failed", err)
	}

	unlockedKeys := make([]string, 0, len(unlocks))
	byKey := make(map[string]Achievement, len(unlocks))
	for _, unlock := range unlocks {
		unlockedKeys = append(unlockedKeys, unlock.AchievementKey)
	}
	if len(unlockedKeys) > 0 {
		var definitions []Achievement
		if err := s.db.WithContext(ctx).
			Where("key IN ?", unlockedKeys).
			Find(&definitions).Error; err != nil {
			return UserAchievements{}, newServiceError(opUserAchievements, "catalog_query_failed", err)
		}
		for _, definition := range definitions {
			byKey[definition.Key] = definition
		}
	}

	result := UserAchievements{
		Unlocked: make([]UnlockedEntry, 0, len(unlocks)),
		Locked:   make([]Achievement, 0),
	}
	for _, unlock := range unlocks {
		definition, ok := byKey[unlock.AchievementKey]
		if !ok {
			continue
		}
		result.Unlocked = append(result.Unlocked, UnlockedEntry{
			Achievement: definition,
			UnlockedAt:  unlock.UnlockedAt,
		})
	}

	locked := s.db.WithContext(ctx).Model(&Achievement{})
	if len(unlockedKeys) > 0 {
		locked = locked.Where("key NOT IN ?", unlockedKeys)
	}
	if err := locked.Order("category ASC, requirement ASC").Find(&result.Locked).Error; err != nil {
		return UserAchievements{}, newServiceError(opUserAchievements, "locked_query_failed", err)
	}

	return result, nil
}

func (s *Service) requirementCount(ctx context.Context, userEmail string, kind RequirementKind) (int64, bool, error) {
	switch kind {
	case RequirementChatQuestions:
		count, err := s.interactionCount(ctx, userEmail, KindChatQuestion)
		return count, true, err
	case RequirementUniqueNEOChats:
		count, err := s.distinctNEOCount(ctx, userEmail, KindChatQuestion)
		return count, true, err
	case RequirementFavoritesCount:
		count, err := s.favorites.CountFavorites(ctx, userEmail)
		return count, true, err
	case RequirementNEOsViewed:
		count, err := s.distinctNEOCount(ctx, userEmail, KindNEOViewed)
		return count, true, err
	case RequirementDailyBriefings:
		count, err := s.interactionCount(ctx, userEmail, KindDailyBriefing)
		return count, true, err
	default:
		return 0, false, nil
	}
}

func (s *Service) interactionCount(ctx context.Context, userEmail string, kind InteractionKind) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Interaction{}).
		Where("user_email = ? AND kind = ?", userEmail, string(kind)).
		Count(&count).Error
	return count, err
}

func (s *Service) distinctNEOCount(ctx context.Context, userEmail string, kind InteractionKind) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Interaction{}).
		Where("user_email = ? AND kind = ?", userEmail, string(kind)).
		Distinct("neo_name").
		Count(&count).Error
	return count, err
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("achievements service error", attrs...)
}
