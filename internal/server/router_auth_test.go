package server

import (
	"errors"
	"net/http"
	"testing"
)

func TestGoogleAuthIssuesSessionAndProfile(t *testing.T) {
	env := newTestEnv(t)

	response, payload := env.doJSON(t, http.MethodPost, "/auth/google", "", map[string]any{
		"id_token": "stub-google-token",
	})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}

	token, ok := payload["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected access token in response, got %v", payload)
	}
	if payload["token_type"] != "Bearer" {
		t.Fatalf("unexpected token type: %v", payload["token_type"])
	}
	user, ok := payload["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user payload, got %v", payload)
	}
	if user["email"] != "astro@example.com" {
		t.Fatalf("unexpected user email: %v", user["email"])
	}
	if user["display_name"] != "Astro Explorer" {
		t.Fatalf("unexpected display name: %v", user["display_name"])
	}

	sessionCookie := false
	for _, cookie := range response.Cookies() {
		if cookie.Name == env.sessions.CookieName() && cookie.Value != "" {
			sessionCookie = true
		}
	}
	if !sessionCookie {
		t.Fatalf("expected session cookie to be set")
	}

	// The login also created the profile row.
	response, payload = env.doJSON(t, http.MethodGet, "/api/profile", token, nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected profile status: %d", response.StatusCode)
	}
	user, ok = payload["user"].(map[string]any)
	if !ok || user["email"] != "astro@example.com" {
		t.Fatalf("unexpected profile payload: %v", payload)
	}
}

func TestGoogleAuthRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.err = errors.New("token signature invalid")

	response, _ := env.doJSON(t, http.MethodPost, "/auth/google", "", map[string]any{
		"id_token": "bad-token",
	})
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
}

func TestGoogleAuthRejectsMissingIDToken(t *testing.T) {
	env := newTestEnv(t)

	response, _ := env.doJSON(t, http.MethodPost, "/auth/google", "", map[string]any{
		"id_token": "  ",
	})
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/api/neos", "/api/favorites", "/api/daily-briefing", "/api/profile/stats"}
	for _, path := range paths {
		response, _ := env.doJSON(t, http.MethodGet, path, "", nil)
		if response.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without session, got %d", path, response.StatusCode)
		}
	}

	response, _ := env.doJSON(t, http.MethodGet, "/api/neos", "not-a-real-token", nil)
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", response.StatusCode)
	}
}

func TestLogoutClearsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	response, payload := env.doJSON(t, http.MethodPost, "/auth/logout", "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
	if payload["logged_out"] != true {
		t.Fatalf("unexpected logout payload: %v", payload)
	}

	cleared := false
	for _, cookie := range response.Cookies() {
		if cookie.Name == env.sessions.CookieName() && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be expired")
	}
}
