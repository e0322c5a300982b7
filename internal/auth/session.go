package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 12 * time.Hour

var (
	ErrMissingSessionSigningKey = errors.New("session: signing key required")
	ErrMissingSessionIssuer     = errors.New("session: issuer required")
	ErrMissingSessionCookieName = errors.New("session: cookie name required")
	ErrMissingSessionToken      = errors.New("session: token required")
	ErrInvalidSessionToken      = errors.New("session: invalid token")
	ErrExpiredSessionToken      = errors.New("session: token expired")
	ErrMissingSessionEmail      = errors.New("session: email claim required")
)

// SessionClaims is the JWT payload carried in the session cookie after a
// successful Google login.
type SessionClaims struct {
	UserEmail       string `json:"user_email"`
	UserDisplayName string `json:"user_display_name"`
	UserAvatarURL   string `json:"user_avatar_url"`
	jwt.RegisteredClaims
}

// SessionIssuerConfig configures session issuing and validation.
type SessionIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	SessionTTL    time.Duration
	Clock         func() time.Time
}

// SessionIssuer mints and validates the HS256 session tokens the browser
// carries between requests. It replaces the identity provider's opaque
// session: constructed once at startup, never a hidden global.
type SessionIssuer struct {
	signingSecret []byte
	issuer        string
	cookieName    string
	sessionTTL    time.Duration
	clock         func() time.Time
}

// NewSessionIssuer constructs a session issuer with validated configuration.
func NewSessionIssuer(cfg SessionIssuerConfig) (*SessionIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSessionSigningKey
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingSessionIssuer
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingSessionCookieName
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		cookieName:    cookieName,
		sessionTTL:    ttl,
		clock:         clock,
	}, nil
}

// CookieName returns the cookie name configured for session lookups.
func (i *SessionIssuer) CookieName() string {
	return i.cookieName
}

// SessionTTL returns the configured session lifetime.
func (i *SessionIssuer) SessionTTL() time.Duration {
	return i.sessionTTL
}

// IssueSession produces a signed session token for verified Google claims and
// returns it with its remaining lifetime in seconds.
func (i *SessionIssuer) IssueSession(claims GoogleClaims) (string, int64, error) {
	if strings.TrimSpace(claims.Email) == "" {
		return "", 0, ErrMissingSessionEmail
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.sessionTTL)

	session := SessionClaims{
		UserEmail:       claims.Email,
		UserDisplayName: claims.Name,
		UserAvatarURL:   claims.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, session)
	signed, err := token.SignedString(i.signingSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken validates the supplied JWT string and returns the parsed claims.
func (i *SessionIssuer) ValidateToken(tokenString string) (SessionClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidSessionToken, t.Method.Alg())
			}
			return i.signingSecret, nil
		},
		jwt.WithTimeFunc(i.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrExpiredSessionToken
		}
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if claims.Issuer != i.issuer {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if strings.TrimSpace(claims.UserEmail) == "" {
		return SessionClaims{}, ErrMissingSessionEmail
	}
	return *claims, nil
}

// ValidateRequest resolves the session from the request: the session cookie
// first, then a Bearer token for non-browser clients.
func (i *SessionIssuer) ValidateRequest(r *http.Request) (SessionClaims, error) {
	if r == nil {
		return SessionClaims{}, ErrMissingSessionToken
	}
	if cookie, err := r.Cookie(i.cookieName); err == nil && cookie != nil && cookie.Value != "" {
		return i.ValidateToken(cookie.Value)
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return i.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	}
	return SessionClaims{}, ErrMissingSessionToken
}
