package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/achievements"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/auth"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/briefing"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userEmailContextKey = "cosmodex_user_email"
	userNameContextKey  = "cosmodex_user_name"
)

var (
	errMissingGoogleVerifier     = errors.New("google verifier dependency required")
	errMissingSessionManager     = errors.New("session manager dependency required")
	errMissingUsersService       = errors.New("users service dependency required")
	errMissingFeedClient         = errors.New("neo feed dependency required")
	errMissingFavoritesService   = errors.New("favorites service dependency required")
	errMissingAchievementService = errors.New("achievement service dependency required")
	errMissingGenerator          = errors.New("text generator dependency required")
	errMissingBriefingCache      = errors.New("briefing cache dependency required")
)

// GoogleVerifier validates Google ID tokens presented at login.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.GoogleClaims, error)
}

// SessionManager issues and validates browser session tokens.
type SessionManager interface {
	IssueSession(claims auth.GoogleClaims) (string, int64, error)
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
	CookieName() string
	SessionTTL() time.Duration
}

// NEOFeed supplies today's close-approach records. Upstream failures degrade
// to an empty listing at this layer.
type NEOFeed interface {
	FetchToday(ctx context.Context) ([]neos.NEO, error)
}

// TextGenerator produces the AI-written copy. Implementations fall back to
// fixed text on upstream failure, so these methods never error.
type TextGenerator interface {
	Summarize(ctx context.Context, record neos.NEO) string
	FunDescriptions(ctx context.Context, record neos.NEO) map[string]string
	Chat(ctx context.Context, record neos.NEO, question string) string
	DailyBriefing(ctx context.Context, displayName string, records []neos.NEO) string
}

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	GoogleVerifier GoogleVerifier
	Sessions       SessionManager
	Users          *users.Service
	Feed           NEOFeed
	Favorites      *neos.FavoritesService
	Achievements   *achievements.Service
	Generator      TextGenerator
	Briefings      *briefing.Service
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewHTTPHandler assembles the Gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionManager
	}
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Feed == nil {
		return nil, errMissingFeedClient
	}
	if deps.Favorites == nil {
		return nil, errMissingFavoritesService
	}
	if deps.Achievements == nil {
		return nil, errMissingAchievementService
	}
	if deps.Generator == nil {
		return nil, errMissingGenerator
	}
	if deps.Briefings == nil {
		return nil, errMissingBriefingCache
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier:     deps.GoogleVerifier,
		sessions:     deps.Sessions,
		users:        deps.Users,
		feed:         deps.Feed,
		favorites:    deps.Favorites,
		achievements: deps.Achievements,
		generator:    deps.Generator,
		briefings:    deps.Briefings,
		logger:       logger,
		clock:        clock,
	}

	router.POST("/auth/google", handler.handleGoogleAuth)
	router.POST("/auth/logout", handler.handleLogout)

	protected := router.Group("/api")
	protected.Use(handler.authorizeRequest)
	protected.GET("/neos", handler.handleListNEOs)
	protected.POST("/neos/view", handler.handleViewNEO)
	protected.POST("/chat", handler.handleChat)
	protected.GET("/favorites", handler.handleListFavorites)
	protected.POST("/favorites", handler.handleSaveFavorite)
	protected.DELETE("/favorites/:name", handler.handleUnfavorite)
	protected.GET("/daily-briefing", handler.handleDailyBriefing)
	protected.GET("/profile", handler.handleProfile)
	protected.GET("/profile/stats", handler.handleStats)
	protected.GET("/profile/achievements", handler.handleAchievements)

	return router, nil
}

type httpHandler struct {
	verifier     GoogleVerifier
	sessions     SessionManager
	users        *users.Service
	feed         NEOFeed
	favorites    *neos.FavoritesService
	achievements *achievements.Service
	generator    TextGenerator
	briefings    *briefing.Service
	logger       *zap.Logger
	clock        func() time.Time
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type userPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type authResponsePayload struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if _, err := h.users.Touch(c.Request.Context(), claims.Email, claims.Name, claims.AvatarURL); err != nil {
		// Login still proceeds; the profile row is refreshed on the next visit.
		h.logger.Warn("profile upsert failed", zap.String("user_email", claims.Email), zap.Error(err))
	}

	token, expiresIn, err := h.sessions.IssueSession(claims)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}

	c.SetCookie(h.sessions.CookieName(), token, int(h.sessions.SessionTTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User: userPayload{
			Email:       claims.Email,
			DisplayName: claims.Name,
			AvatarURL:   claims.AvatarURL,
		},
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userEmailContextKey, claims.UserEmail)
	c.Set(userNameContextKey, claims.UserDisplayName)
	c.Next()
}

type neoPayload struct {
	Name         string  `json:"name"`
	Diameter     float64 `json:"diameter"`
	Speed        float64 `json:"speed"`
	MissDistance float64 `json:"miss_distance"`
	Date         string  `json:"date"`
}

func (p neoPayload) record() neos.NEO {
	return neos.NEO{
		Name:         p.Name,
		Diameter:     p.Diameter,
		Speed:        p.Speed,
		MissDistance: p.MissDistance,
		Date:         p.Date,
	}
}

type achievementPayload struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Icon            string `json:"icon"`
	Category        string `json:"category"`
	Requirement     int64  `json:"requirement"`
	RequirementType string `json:"requirement_type"`
}

type unlockedAchievementPayload struct {
	achievementPayload
	UnlockedAt time.Time `json:"unlocked_at"`
}

func toAchievementPayload(a achievements.Achievement) achievementPayload {
	return achievementPayload{
		Key:             a.Key,
		Name:            a.Name,
		Description:     a.Description,
		Icon:            a.Icon,
		Category:        a.Category,
		Requirement:     a.Requirement,
		RequirementType: a.RequirementKind,
	}
}

func toAchievementPayloads(list []achievements.Achievement) []achievementPayload {
	payloads := make([]achievementPayload, 0, len(list))
	for _, a := range list {
		payloads = append(payloads, toAchievementPayload(a))
	}
	return payloads
}

// trackAndEvaluate appends one interaction and immediately runs an evaluation
// pass. Both steps are best-effort: a logging or evaluation failure never
// blocks the user action that triggered them.
func (h *httpHandler) trackAndEvaluate(ctx context.Context, userEmail string, kind achievements.InteractionKind, neoName string) []achievements.Achievement {
	if err := h.achievements.Record(ctx, userEmail, kind, neoName); err != nil {
		h.logger.Warn("interaction record failed",
			zap.String("user_email", userEmail),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	newlyUnlocked, err := h.achievements.Evaluate(ctx, userEmail)
	if err != nil {
		h.logger.Warn("achievement evaluation failed",
			zap.String("user_email", userEmail),
			zap.Error(err))
		return nil
	}
	return newlyUnlocked
}

func (h *httpHandler) handleListNEOs(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	newlyUnlocked := h.trackAndEvaluate(c.Request.Context(), userEmail, achievements.KindNEOsView, "")

	records, err := h.feed.FetchToday(c.Request.Context())
	if err != nil {
		// Upstream failure reads as "no NEOs today", never as an error page.
		h.logger.Warn("neo feed fetch failed", zap.Error(err))
		records = []neos.NEO{}
	}

	c.JSON(http.StatusOK, gin.H{
		"neos":           records,
		"newly_unlocked": toAchievementPayloads(newlyUnlocked),
	})
}

type viewNEORequestPayload struct {
	NEO neoPayload `json:"neo"`
}

func (h *httpHandler) handleViewNEO(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	var request viewNEORequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.NEO.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	newlyUnlocked := h.trackAndEvaluate(c.Request.Context(), userEmail, achievements.KindNEOViewed, request.NEO.Name)

	record := request.NEO.record()
	c.JSON(http.StatusOK, gin.H{
		"summary":        h.generator.Summarize(c.Request.Context(), record),
		"descriptions":   h.generator.FunDescriptions(c.Request.Context(), record),
		"newly_unlocked": toAchievementPayloads(newlyUnlocked),
	})
}

type chatRequestPayload struct {
	NEO      neoPayload `json:"neo"`
	Question string     `json:"question"`
}

func (h *httpHandler) handleChat(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	var request chatRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		strings.TrimSpace(request.Question) == "" ||
		strings.TrimSpace(request.NEO.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	newlyUnlocked := h.trackAndEvaluate(c.Request.Context(), userEmail, achievements.KindChatQuestion, request.NEO.Name)

	reply := h.generator.Chat(c.Request.Context(), request.NEO.record(), request.Question)
	c.JSON(http.StatusOK, gin.H{
		"reply":          reply,
		"newly_unlocked": toAchievementPayloads(newlyUnlocked),
	})
}

func (h *httpHandler) handleListFavorites(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	favorites, err := h.favorites.List(c.Request.Context(), userEmail)
	if err != nil {
		h.logger.Error("favorites list failed", zap.String("user_email", userEmail), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorites_list_failed"})
		return
	}

	records := make([]neos.NEO, 0, len(favorites))
	for _, favorite := range favorites {
		records = append(records, favorite.Record())
	}
	c.JSON(http.StatusOK, gin.H{"favorites": records})
}

func (h *httpHandler) handleSaveFavorite(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	var request neoPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.favorites.Save(c.Request.Context(), userEmail, request.record()); err != nil {
		h.logger.Error("favorite save failed",
			zap.String("user_email", userEmail),
			zap.String("neo", request.Name),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_save_failed"})
		return
	}

	// The favorite is already persisted; tracking happens strictly after.
	newlyUnlocked := h.trackAndEvaluate(c.Request.Context(), userEmail, achievements.KindNEOFavorited, request.Name)

	c.JSON(http.StatusOK, gin.H{
		"saved":          true,
		"newly_unlocked": toAchievementPayloads(newlyUnlocked),
	})
}

func (h *httpHandler) handleUnfavorite(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	neoName := strings.TrimSpace(c.Param("name"))
	if neoName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if _, err := h.favorites.Get(c.Request.Context(), userEmail, neoName); err != nil {
		if neos.IsNotFound(err) {
			c.JSON(http.StatusOK, gin.H{"removed": false})
			return
		}
		h.logger.Error("favorite lookup failed",
			zap.String("user_email", userEmail),
			zap.String("neo", neoName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_remove_failed"})
		return
	}

	if err := h.favorites.Remove(c.Request.Context(), userEmail, neoName); err != nil {
		h.logger.Error("favorite remove failed",
			zap.String("user_email", userEmail),
			zap.String("neo", neoName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_remove_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (h *httpHandler) handleDailyBriefing(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)
	displayName := c.GetString(userNameContextKey)

	day := h.clock().UTC().Format("2006-01-02")
	text, cached, err := h.briefings.GetOrGenerate(c.Request.Context(), userEmail, day, func(ctx context.Context) string {
		records, fetchErr := h.feed.FetchToday(ctx)
		if fetchErr != nil {
			h.logger.Warn("neo feed fetch failed for briefing", zap.Error(fetchErr))
			records = []neos.NEO{}
		}
		return h.generator.DailyBriefing(ctx, displayName, records)
	})
	if err != nil {
		h.logger.Error("briefing lookup failed", zap.String("user_email", userEmail), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "briefing_failed"})
		return
	}

	// Engagement credit only on first generation of the day; cache hits are
	// re-viewing, not a new interaction.
	var newlyUnlocked []achievements.Achievement
	if !cached {
		newlyUnlocked = h.trackAndEvaluate(c.Request.Context(), userEmail, achievements.KindDailyBriefing, "")
	}

	c.JSON(http.StatusOK, gin.H{
		"briefing":       text,
		"date":           day,
		"cached":         cached,
		"newly_unlocked": toAchievementPayloads(newlyUnlocked),
	})
}

func (h *httpHandler) handleProfile(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	profile, err := h.users.Get(c.Request.Context(), userEmail)
	if err != nil {
		h.logger.Error("profile lookup failed", zap.String("user_email", userEmail), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}})
}

func (h *httpHandler) handleStats(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	stats, err := h.achievements.UserStats(c.Request.Context(), userEmail)
	if err != nil {
		h.logger.Error("stats lookup failed", zap.String("user_email", userEmail), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats_failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleAchievements(c *gin.Context) {
	userEmail := c.GetString(userEmailContextKey)

	partition, err := h.achievements.UserAchievements(c.Request.Context(), userEmail)
	if err != nil {
		h.logger.Error("achievements lookup failed", zap.String("user_email", userEmail), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "achievements_failed"})
		return
	}

	unlocked := make([]unlockedAchievementPayload, 0, len(partition.Unlocked))
	for _, entry := range partition.Unlocked {
		unlocked = append(unlocked, unlockedAchievementPayload{
			achievementPayload: toAchievementPayload(entry.Achievement),
			UnlockedAt:         entry.UnlockedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"unlocked": unlocked,
		"locked":   toAchievementPayloads(partition.Locked),
	})
}
