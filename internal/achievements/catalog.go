package achievements

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog returns the seed achievement definitions. The slice is rebuilt on
// every call so callers cannot mutate the canonical set.
func Catalog() []Achievement {
	return []Achievement{
		{
			Key:             "first_contact",
			Name:            "First Contact",
			Description:     "Ask the Quackstronaut chatbot your first question",
			Icon:            "🚀",
			Category:        "Communication",
			Requirement:     1,
			RequirementKind: string(RequirementChatQuestions),
		},
		{
			Key:             "cosmic_chatterbox",
			Name:            "Cosmic Chatterbox",
			Description:     "Ask Quackstronaut 10 questions",
			Icon:            "💬",
			Category:        "Communication",
			Requirement:     10,
			RequirementKind: string(RequirementChatQuestions),
		},
		{
			Key:             "space_conversationalist",
			Name:            "Space Conversationalist",
			Description:     "Ask Quackstronaut 25 questions",
			Icon:            "🗣️",
			Category:        "Communication",
			Requirement:     25,
			RequirementKind: string(RequirementChatQuestions),
		},
		{
			Key:             "galactic_investigator",
			Name:            "Galactic Investigator",
			Description:     "Ask questions about three different NEOs",
			Icon:            "🔍",
			Category:        "Exploration",
			Requirement:     3,
			RequirementKind: string(RequirementUniqueNEOChats),
		},
		{
			Key:             "cosmic_detective",
			Name:            "Cosmic Detective",
			Description:     "Ask questions about 10 different NEOs",
			Icon:            "🕵️",
			Category:        "Exploration",
			Requirement:     10,
			RequirementKind: string(RequirementUniqueNEOChats),
		},
		{
			Key:             "wish_upon_star",
			Name:            "Wish Upon a Star",
			Description:     "Favorite your very first NEO",
			Icon:            "⭐",
			Category:        "Collection",
			Requirement:     1,
			RequirementKind: string(RequirementFavoritesCount),
		},
		{
			Key:             "constellation_creator",
			Name:            "Constellation Creator",
			Description:     "Have 10 NEOs in your favorites list",
			Icon:            "✨",
			Category:        "Collection",
			Requirement:     10,
			RequirementKind: string(RequirementFavoritesCount),
		},
		{
			Key:             "galaxy_curator",
			Name:            "Galaxy Curator",
			Description:     "Have 25 NEOs in your favorites list",
			Icon:            "🌌",
			Category:        "Collection",
			Requirement:     25,
			RequirementKind: string(RequirementFavoritesCount),
		},
		{
			Key:             "asteroid_archivist",
			Name:            "Asteroid Archivist",
			Description:     "Have 50 NEOs in your favorites list",
			Icon:            "📚",
			Category:        "Collection",
			Requirement:     50,
			RequirementKind: string(RequirementFavoritesCount),
		},
		{
			Key:             "space_explorer",
			Name:            "Space Explorer",
			Description:     "View details of 5 different NEOs",
			Icon:            "🛸",
			Category:        "Discovery",
			Requirement:     5,
			RequirementKind: string(RequirementNEOsViewed),
		},
		{
			Key:             "cosmic_voyager",
			Name:            "Cosmic Voyager",
			Description:     "View details of 20 different NEOs",
			Icon:            "🌠",
			Category:        "Discovery",
			Requirement:     20,
			RequirementKind: string(RequirementNEOsViewed),
		},
		{
			Key:             "daily_visitor",
			Name:            "Daily Visitor",
			Description:     "Check your daily briefing 5 times",
			Icon:            "📅",
			Category:        "Engagement",
			Requirement:     5,
			RequirementKind: string(RequirementDailyBriefings),
		},
		{
			Key:             "space_station_regular",
			Name:            "Space Station Regular",
			Description:     "Check your daily briefing 15 times",
			Icon:            "🏠",
			Category:        "Engagement",
			Requirement:     15,
			RequirementKind: string(RequirementDailyBriefings),
		},
	}
}

// SeedCatalog inserts any catalog definition whose key is not yet present.
// Existing rows are left untouched, so re-running seeding is always safe.
func SeedCatalog(db *gorm.DB, logger *zap.Logger) error {
	if db == nil {
		return errors.New("achievements: database handle is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, definition := range Catalog() {
		var existing Achievement
		err := db.Where("key = ?", definition.Key).Take(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&definition).Error; err != nil {
			return err
		}
		logger.Info("achievement seeded", zap.String("key", definition.Key))
	}
	return nil
}
