package achievements

import (
	"context"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Interaction{}, &Achievement{}, &UnlockedAchievement{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

type stubFavorites struct {
	count int64
	err   error
}

func (s *stubFavorites) CountFavorites(context.Context, string) (int64, error) {
	return s.count, s.err
}

func newTestService(t *testing.T, db *gorm.DB, favorites FavoritesCounter) *Service {
	t.Helper()
	if favorites == nil {
		favorites = &stubFavorites{}
	}
	service, err := NewService(ServiceConfig{
		Database:  db,
		Favorites: favorites,
		Clock: func() time.Time {
			return time.Unix(1700000000, 0).UTC()
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func seedTestCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := SeedCatalog(db, nil); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

func recordInteractions(t *testing.T, service *Service, userEmail string, kind InteractionKind, neoNames ...string) {
	t.Helper()
	for _, name := range neoNames {
		if err := service.Record(context.Background(), userEmail, kind, name); err != nil {
			t.Fatalf("failed to record interaction: %v", err)
		}
	}
}

func unlockedKeys(list []Achievement) map[string]bool {
	keys := make(map[string]bool, len(list))
	for _, achievement := range list {
		keys[achievement.Key] = true
	}
	return keys
}
