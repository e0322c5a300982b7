package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/achievements"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/auth"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/briefing"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/users"
	githubsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubVerifier struct {
	claims auth.GoogleClaims
	err    error
}

func (s *stubVerifier) Verify(context.Context, string) (auth.GoogleClaims, error) {
	return s.claims, s.err
}

type stubFeed struct {
	records []neos.NEO
	err     error
}

func (s *stubFeed) FetchToday(context.Context) ([]neos.NEO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type stubGenerator struct{}

func (stubGenerator) Summarize(_ context.Context, record neos.NEO) string {
	return "summary of " + record.Name
}

func (stubGenerator) FunDescriptions(context.Context, neos.NEO) map[string]string {
	return map[string]string{
		"size":     "as big as a stadium",
		"speed":    "faster than a jet",
		"distance": "far beyond the Moon",
		"date":     "swinging by today",
	}
}

func (stubGenerator) Chat(_ context.Context, record neos.NEO, question string) string {
	return "quack about " + record.Name + ": " + question
}

func (stubGenerator) DailyBriefing(_ context.Context, displayName string, records []neos.NEO) string {
	return "briefing for " + displayName
}

type testEnv struct {
	server   *httptest.Server
	sessions *auth.SessionIssuer
	verifier *stubVerifier
	feed     *stubFeed
	now      *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(githubsqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access database handle: %v", err)
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
		t.Fatalf("failed to migrate schema: %v", err)
	}
	if err := achievements.SeedCatalog(db, zap.NewNop()); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	env := &testEnv{now: &now}
	clock := func() time.Time { return *env.now }

	env.sessions, err = auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "cosmodex-api",
		CookieName:    "cosmodex_session",
		SessionTTL:    time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to create session issuer: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	favoritesService, err := neos.NewFavoritesService(neos.FavoritesServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create favorites service: %v", err)
	}
	achievementService, err := achievements.NewService(achievements.ServiceConfig{
		Database:  db,
		Favorites: favoritesService,
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("failed to create achievement service: %v", err)
	}
	briefingService, err := briefing.NewService(briefing.ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create briefing service: %v", err)
	}

	env.verifier = &stubVerifier{claims: auth.GoogleClaims{
		Subject:   "google-subject-1",
		Email:     "astro@example.com",
		Name:      "Astro Explorer",
		AvatarURL: "https://example.com/avatar.png",
	}}
	env.feed = &stubFeed{records: []neos.NEO{
		{Name: "433 Eros", Diameter: 123, Speed: 8.25, MissDistance: 45.5, Date: "2023-11-14"},
	}}

	handler, err := NewHTTPHandler(Dependencies{
		GoogleVerifier: env.verifier,
		Sessions:       env.sessions,
		Users:          usersService,
		Feed:           env.feed,
		Favorites:      favoritesService,
		Achievements:   achievementService,
		Generator:      stubGenerator{},
		Briefings:      briefingService,
		Logger:         zap.NewNop(),
		Clock:          clock,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}

	env.server = httptest.NewServer(handler)
	t.Cleanup(env.server.Close)
	return env
}

// sessionToken mints a valid session directly, bypassing the login endpoint.
func (e *testEnv) sessionToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.sessions.IssueSession(e.verifier.claims)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}
	return token
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to construct request: %v", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()

	payload := map[string]any{}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("failed to decode response %q: %v", string(raw), err)
		}
	}
	return response, payload
}

func unlockedKeysFromPayload(payload map[string]any) []string {
	entries, ok := payload["newly_unlocked"].([]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if fields, ok := entry.(map[string]any); ok {
			if key, ok := fields["key"].(string); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys
}
