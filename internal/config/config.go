package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "COSMODEX"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "cosmodex.db"
	defaultLogLevel          = "info"
	defaultCookieName        = "cosmodex_session"
	defaultSessionTTLMinutes = 720
	defaultGoogleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	defaultNASABaseURL       = "https://api.nasa.gov/neo/rest/v1"
	defaultNASAAPIKey        = "DEMO_KEY"
	defaultAssistantBaseURL  = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultAssistantModel    = "gemini-1.5-pro"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress          string
	DatabasePath         string
	LogLevel             string
	SessionSigningSecret string
	SessionCookieName    string
	SessionTTL           time.Duration
	GoogleClientID       string
	GoogleJWKSURL        string
	NASAAPIKey           string
	NASABaseURL          string
	AssistantAPIKey      string
	AssistantBaseURL     string
	AssistantModel       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.ttl_minutes", defaultSessionTTLMinutes)
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
	configViper.SetDefault("nasa.base_url", defaultNASABaseURL)
	configViper.SetDefault("nasa.api_key", defaultNASAAPIKey)
	configViper.SetDefault("assistant.base_url", defaultAssistantBaseURL)
	configViper.SetDefault("assistant.model", defaultAssistantModel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		DatabasePath:         configViper.GetString("database.path"),
		LogLevel:             configViper.GetString("log.level"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		SessionCookieName:    configViper.GetString("session.cookie_name"),
		SessionTTL:           time.Duration(configViper.GetInt("session.ttl_minutes")) * time.Minute,
		GoogleClientID:       configViper.GetString("google.client_id"),
		GoogleJWKSURL:        configViper.GetString("google.jwks_url"),
		NASAAPIKey:           configViper.GetString("nasa.api_key"),
		NASABaseURL:          configViper.GetString("nasa.base_url"),
		AssistantAPIKey:      configViper.GetString("assistant.api_key"),
		AssistantBaseURL:     configViper.GetString("assistant.base_url"),
		AssistantModel:       configViper.GetString("assistant.model"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningSecret) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if strings.TrimSpace(c.GoogleClientID) == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	return nil
}
