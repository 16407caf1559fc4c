package integration__test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func extractRefreshCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}

	t.Fatalf("refresh_token cookie not found in response")

	return nil
}

func TestAuthIntegration_Signup_Refresh_Logout(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	// sign up

	signupBody := `{"email":"sam@example.com","password":"password123","name":"Sam Doe"}`

	w, response := doRequest(router, http.MethodPost, "/api/v1/auth/signup", signupBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var signupToken tokenResponse

	mustReadJSON(t, w, &signupToken)

	if strings.TrimSpace(signupToken.AccessToken) == "" {
		t.Fatalf("signup expected accessToken, got empty")
	}

	signupRefresh := extractRefreshCookie(t, response)

	// REFRESH (happy path)

	w2, response2 := doRequest(router, http.MethodPost, "/api/v1/auth/refresh", "", signupRefresh)

	if w2.Code != http.StatusOK {
		t.Fatalf("refresh got status %d, want %d, body=%s", w2.Code, http.StatusOK, w2.Body.String())
	}

	var refreshTokenOk tokenResponse
	mustReadJSON(t, w2, &refreshTokenOk)

	if strings.TrimSpace(refreshTokenOk.AccessToken) == "" {
		t.Fatalf("refresh expected access token, got empty")
	}

	rotatedRefresh := extractRefreshCookie(t, response2)

	// Refresh with OLD cookie should now fail (rotation)
	w3, _ := doRequest(router, http.MethodPost, "/api/v1/auth/refresh", "", signupRefresh)
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("refresh(old cookie) got status %d, want %d, body=%s", w3.Code, http.StatusUnauthorized, w3.Body.String())
	}

	// Refreshing with new cookie should succeed

	w4, _ := doRequest(router, http.MethodPost, "/api/v1/auth/refresh", "", rotatedRefresh)

	if w4.Code != http.StatusOK {
		t.Fatalf("refresh(new cookie) got status %d, want %d, body=%s", w4.Code, http.StatusOK, w4.Body.String())
	}

	// LOGOUT should revoke and clear the cookie

	w5, response5 := doRequest(router, http.MethodPost, "/api/v1/auth/logout", "", rotatedRefresh)

	if w5.Code != http.StatusNoContent {
		t.Fatalf("logout got status %d, want %d, body=%s", w5.Code, http.StatusNoContent, w5.Body.String())
	}

	cleared := false

	for _, c := range response5.Cookies() {
		if c.Name == "refresh_token" && (c.MaxAge < 0 || c.Value == "") {
			cleared = true
		}
	}

	if !cleared {
		t.Fatalf("expected logout to clear refresh_token cookie")
	}

	// REFRESH after logout should fail
	w6, _ := doRequest(router, http.MethodPost, "/api/v1/auth/refresh", "", rotatedRefresh)
	if w6.Code != http.StatusUnauthorized {
		t.Fatalf("refresh(after logout) got status %d, want %d, body=%s", w6.Code, http.StatusUnauthorized, w6.Body.String())
	}
}

func TestAuthIntegration_Refresh_MissingCookie(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	w, _ := doRequest(router, http.MethodPost, "/api/v1/auth/refresh", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh(missing cookie) got status %d, want %d, body=%s", w.Code, http.StatusUnauthorized, w.Body.String())
	}

	var e apiErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Error.Code != "no_refresh" {
		t.Fatalf("expected no_refresh, got %s", e.Error.Code)
	}
}

func TestAuthIntegration_Login_InvalidCredentials(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	// no user created
	body := `{"email":"nope@example.com","password":"wrongpassword"}`
	w, _ := doRequest(router, http.MethodPost, "/api/v1/auth/login", body)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login(invalid creds) got status %d, want %d, body=%s", w.Code, http.StatusUnauthorized, w.Body.String())
	}
}

func TestAuthIntegration_Login_DeactivatedAccount(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	seedUser(t, pool, "gone@example.com", "Gone User", "student")

	_, err := pool.Exec(context.Background(), `UPDATE users SET active = FALSE WHERE email = 'gone@example.com'`)
	if err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	body := `{"email":"gone@example.com","password":"password123"}`
	w, _ := doRequest(router, http.MethodPost, "/api/v1/auth/login", body)

	if w.Code != http.StatusForbidden {
		t.Fatalf("login(deactivated) got status %d, want %d, body=%s", w.Code, http.StatusForbidden, w.Body.String())
	}

	var e apiErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Error.Code != "account_deactivated" {
		t.Fatalf("expected account_deactivated, got %s", e.Error.Code)
	}
}
