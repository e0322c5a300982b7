package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/achievements"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/assistant"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/auth"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/briefing"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/config"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/database"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/logging"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/server"
	"github.com/MarcoPoloResearchLab/cosmodex/internal/users"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cosmodex-api",
		Short: "CosmoDex near-Earth object tracker backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	cmd.PersistentFlags().String("google-jwks-url", defaults.GetString("google.jwks_url"), "Google JWKS URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("nasa-api-key", defaults.GetString("nasa.api_key"), "NASA NeoWs API key")
	cmd.PersistentFlags().String("nasa-base-url", defaults.GetString("nasa.base_url"), "NASA NeoWs base URL")
	cmd.PersistentFlags().String("assistant-model", defaults.GetString("assistant.model"), "Assistant model name")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("session.ttl_minutes"), "Session TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "google.client_id", "google-client-id")
	bindFlag(cmd, "google.jwks_url", "google-jwks-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "nasa.api_key", "nasa-api-key")
	bindFlag(cmd, "nasa.base_url", "nasa-base-url")
	bindFlag(cmd, "assistant.model", "assistant-model")
	bindFlag(cmd, "session.ttl_minutes", "session-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// .env is optional; absence is the normal production case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	googleVerifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience: appConfig.GoogleClientID,
		JWKSURL:  appConfig.GoogleJWKSURL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sessionIssuer, err := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(appConfig.SessionSigningSecret),
		Issuer:        "cosmodex-api",
		CookieName:    appConfig.SessionCookieName,
		SessionTTL:    appConfig.SessionTTL,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	feedClient, err := neos.NewFeedClient(neos.FeedClientConfig{
		BaseURL: appConfig.NASABaseURL,
		APIKey:  appConfig.NASAAPIKey,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	favoritesService, err := neos.NewFavoritesService(neos.FavoritesServiceConfig{
		Database: db,
	})
	if err != nil {
		return err
	}

	achievementService, err := achievements.NewService(achievements.ServiceConfig{
		Database:  db,
		Favorites: favoritesService,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var assistantClient assistant.Client
	if appConfig.AssistantAPIKey != "" {
		assistantClient, err = assistant.NewOpenAIClient(assistant.OpenAIClientConfig{
			APIKey:  appConfig.AssistantAPIKey,
			BaseURL: appConfig.AssistantBaseURL,
			Model:   appConfig.AssistantModel,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("assistant api key not configured, serving fallback text")
		assistantClient = assistant.UnavailableClient{}
	}

	generator, err := assistant.NewGenerator(assistant.GeneratorConfig{
		Client: assistantClient,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	briefingCache, err := briefing.NewService(briefing.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sweeper, err := briefing.NewSweeper(briefing.SweeperConfig{
		Cache:  briefingCache,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		GoogleVerifier: googleVerifier,
		Sessions:       sessionIssuer,
		Users:          usersService,
		Feed:           feedClient,
		Favorites:      favoritesService,
		Achievements:   achievementService,
		Generator:      generator,
		Briefings:      briefingCache,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
