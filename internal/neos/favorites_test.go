package neos

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testUser = "astro@example.com"

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
	if err := db.AutoMigrate(&FavoriteNEO{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestFavorites(t *testing.T, db *gorm.DB) *FavoritesService {
	t.Helper()
	clockValue := time.Unix(1700000000, 0).UTC()
	service, err := NewFavoritesService(FavoritesServiceConfig{
		Database: db,
		Clock: func() time.Time {
			clockValue = clockValue.Add(time.Second)
			return clockValue
		},
	})
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}
	return service
}

func testNEO(name string) NEO {
	return NEO{
		Name:         name,
		Diameter:     123,
		Speed:        8.25,
		MissDistance: 45.5,
		Date:         "2026-08-30",
	}
}

func TestSaveFavoriteUpsertsSingleRow(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)
	ctx := context.Background()

	if err := service.Save(ctx, testUser, testNEO("Bennu")); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	updated := testNEO("Bennu")
	updated.Diameter = 456
	if err := service.Save(ctx, testUser, updated); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	count, err := service.CountFavorites(ctx, testUser)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one favorite row, got %d", count)
	}

	stored, err := service.Get(ctx, testUser, "Bennu")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Diameter != 456 {
		t.Fatalf("expected snapshot to refresh on re-save, diameter %v", stored.Diameter)
	}
}

func TestUnfavoriteThenRefavorite(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)
	ctx := context.Background()

	if err := service.Save(ctx, testUser, testNEO("Apophis")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := service.Remove(ctx, testUser, "Apophis"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	count, err := service.CountFavorites(ctx, testUser)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no favorites after removal, got %d", count)
	}

	if err := service.Save(ctx, testUser, testNEO("Apophis")); err != nil {
		t.Fatalf("refavorite failed: %v", err)
	}
	count, err = service.CountFavorites(ctx, testUser)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one favorite after refavoriting, got %d", count)
	}
}

func TestRemoveAbsentFavoriteIsNoOp(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)

	if err := service.Remove(context.Background(), testUser, "Phantom"); err != nil {
		t.Fatalf("removing an absent favorite should succeed, got %v", err)
	}
}

func TestGetAbsentFavoriteReportsNotFound(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)

	_, err := service.Get(context.Background(), testUser, "Phantom")
	if err == nil {
		t.Fatalf("expected an error for an absent favorite")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
	if IsNotFound(ErrMissingNEOName) {
		t.Fatalf("validation errors must not read as not-found")
	}
}

func TestListReturnsMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)
	ctx := context.Background()

	if err := service.Save(ctx, testUser, testNEO("Bennu")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := service.Save(ctx, testUser, testNEO("Apophis")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	favorites, err := service.List(ctx, testUser)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favorites) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(favorites))
	}
	if favorites[0].Name != "Apophis" {
		t.Fatalf("expected most recently saved first, got %s", favorites[0].Name)
	}
}

func TestFavoritesScopedPerUser(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)
	ctx := context.Background()

	if err := service.Save(ctx, testUser, testNEO("Bennu")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := service.Save(ctx, "other@example.com", testNEO("Bennu")); err != nil {
		t.Fatalf("save for second user failed: %v", err)
	}

	count, err := service.CountFavorites(ctx, testUser)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected per-user count 1, got %d", count)
	}
}

func TestFavoritesOperationsRejectEmptyEmail(t *testing.T) {
	db := newTestDB(t)
	service := newTestFavorites(t, db)
	ctx := context.Background()

	if err := service.Save(ctx, "", testNEO("Bennu")); !errors.Is(err, ErrMissingUserEmail) {
		t.Fatalf("save: expected ErrMissingUserEmail, got %v", err)
	}
	if _, err := service.List(ctx, ""); !errors.Is(err, ErrMissingUserEmail) {
		t.Fatalf("list: expected ErrMissingUserEmail, got %v", err)
	}
	if _, err := service.CountFavorites(ctx, ""); !errors.Is(err, ErrMissingUserEmail) {
		t.Fatalf("count: expected ErrMissingUserEmail, got %v", err)
	}
	if err := service.Remove(ctx, testUser, ""); !errors.Is(err, ErrMissingNEOName) {
		t.Fatalf("remove: expected ErrMissingNEOName, got %v", err)
	}
}
