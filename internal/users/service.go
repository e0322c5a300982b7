package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidIdentity indicates the login payload did not contain a usable email.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ServiceConfig describes the dependencies required for profile upkeep.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service maintains per-user profile records refreshed on each login.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Touch records a login: it creates the profile on first sight and refreshes
// the display name, avatar, and last-seen time on repeat visits.
func (s *Service) Touch(ctx context.Context, email, displayName, avatarURL string) (Profile, error) {
	email = normalize(email)
	if email == "" {
		return Profile{}, ErrInvalidIdentity
	}

	var profile Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = Profile{
			Email:       email,
			DisplayName: normalize(displayName),
			AvatarURL:   normalize(avatarURL),
			LastSeenAt:  s.now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return Profile{}, err
		}
		return profile, nil
	}
	if err != nil {
		return Profile{}, err
	}

	updates := map[string]interface{}{"last_seen_at": s.now().UTC()}
	if display := normalize(displayName); display != "" && display != profile.DisplayName {
		updates["display_name"] = display
		profile.DisplayName = display
	}
	if avatar := normalize(avatarURL); avatar != "" && avatar != profile.AvatarURL {
		updates["avatar_url"] = avatar
		profile.AvatarURL = avatar
	}
	if err := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("email = ?", email).
		Updates(updates).Error; err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Get returns the stored profile for an email.
func (s *Service) Get(ctx context.Context, email string) (Profile, error) {
	email = normalize(email)
	if email == "" {
		return Profile{}, ErrInvalidIdentity
	}
	var profile Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&profile).Error
	return profile, err
}
