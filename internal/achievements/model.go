package achievements

import "time"

// InteractionKind labels a tracked user action. The log is descriptive:
// unrecognized kinds are stored as-is but never counted by the evaluator.
type InteractionKind string

const (
	KindChatQuestion  InteractionKind = "chat_question"
	KindNEOViewed     InteractionKind = "neo_viewed"
	KindNEOFavorited  InteractionKind = "neo_favorited"
	KindDailyBriefing InteractionKind = "daily_briefing"
	KindNEOsView      InteractionKind = "neos_view"
)

// RequirementKind names the behavior an achievement threshold is measured against.
type RequirementKind string

const (
	RequirementChatQuestions  RequirementKind = "chat_questions"
	RequirementUniqueNEOChats RequirementKind = "unique_neo_chats"
	RequirementFavoritesCount RequirementKind = "favorites_count"
	RequirementNEOsViewed     RequirementKind = "neos_viewed"
	RequirementDailyBriefings RequirementKind = "daily_briefings"
)

// Interaction is one append-only entry in the user activity log.
type Interaction struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserEmail string    `gorm:"column:user_email;size:320;not null;index:idx_interactions_user_kind,priority:1"`
	Kind      string    `gorm:"column:kind;size:50;not null;index:idx_interactions_user_kind,priority:2"`
	NEOName   string    `gorm:"column:neo_name;size:100"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Interaction) TableName() string {
	return "user_interactions"
}

// Achievement is one seeded catalog definition. Rows are immutable after seeding.
type Achievement struct {
	Key             string `gorm:"column:key;primaryKey;size:50;not null"`
	Name            string `gorm:"column:name;size:100;not null"`
	Description     string `gorm:"column:description;type:text;not null"`
	Icon            string `gorm:"column:icon;size:10;not null"`
	Category        string `gorm:"column:category;size:50;not null"`
	Requirement     int64  `gorm:"column:requirement;not null"`
	RequirementKind string `gorm:"column:requirement_type;size:50;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Achievement) TableName() string {
	return "achievements"
}

// UnlockedAchievement records the one-time unlock of an achievement by a user.
type UnlockedAchievement struct {
	UserEmail      string    `gorm:"column:user_email;primaryKey;size:320;not null"`
	AchievementKey string    `gorm:"column:achievement_key;primaryKey;size:50;not null"`
	UnlockedAt     time.Time `gorm:"column:unlocked_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (UnlockedAchievement) TableName() string {
	return "user_achievements"
}

// UserStats bundles the raw counters behind the profile page. None of the
// values are gated by thresholds.
type UserStats struct {
	TotalQuestions    int64 `json:"total_questions"`
	UniqueNEOsChatted int64 `json:"unique_neos_chatted"`
	FavoritesCount    int64 `json:"favorites_count"`
	NEOsViewed        int64 `json:"neos_viewed"`
	DailyBriefings    int64 `json:"daily_briefings"`
	AchievementsCount int64 `json:"achievements_count"`
	TotalAchievements int64 `json:"total_achievements"`
}

// UnlockedEntry pairs a catalog definition with its unlock time.
type UnlockedEntry struct {
	Achievement Achievement `json:"achievement"`
	UnlockedAt  time.Time   `json:"unlocked_at"`
}

// UserAchievements partitions the catalog for one user.
type UserAchievements struct {
	Unlocked []UnlockedEntry `json:"unlocked"`
	Locked   []Achievement   `json:"locked"`
}
