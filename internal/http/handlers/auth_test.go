package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/auth"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/http/handlers"
	"github.com/zikenn26/CampusHub/internal/repo/memory"
	"github.com/zikenn26/CampusHub/internal/repo/postgres"
	"golang.org/x/crypto/bcrypt"
)

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]user.User
}

func newFakeAccounts(seed ...user.User) *fakeAccounts {
	f := &fakeAccounts{users: make(map[string]user.User)}

	for _, u := range seed {
		f.users[u.Email] = u
	}

	return f
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[email]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (f *fakeAccounts) Create(ctx context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[u.Email]; ok {
		return postgres.ErrEmailTaken
	}

	f.users[u.Email] = u

	return nil
}

type fakeRefreshTokens struct {
	mu   sync.Mutex
	rows map[string]postgres.RefreshTokenRow
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{rows: make(map[string]postgres.RefreshTokenRow)}
}

func (f *fakeRefreshTokens) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return memory.NewTx(), nil
}

func (f *fakeRefreshTokens) Create(ctx context.Context, tx pgx.Tx, row postgres.RefreshTokenRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rows[row.ID] = row

	return nil
}

func (f *fakeRefreshTokens) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (postgres.RefreshTokenRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]

	if !ok {
		return postgres.RefreshTokenRow{}, pgx.ErrNoRows
	}

	return row, nil
}

func (f *fakeRefreshTokens) Revoke(ctx context.Context, tx pgx.Tx, id string, replacedBy *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]

	if !ok {
		return pgx.ErrNoRows
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	row.ReplacedBy = replacedBy
	f.rows[id] = row

	return nil
}

func (f *fakeRefreshTokens) RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()

	for id, row := range f.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
			f.rows[id] = row
		}
	}

	return nil
}

func (f *fakeRefreshTokens) get(id string) (postgres.RefreshTokenRow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]

	return row, ok
}

// testHash uses the minimum bcrypt cost; CheckPassword reads the cost
// from the hash, so verification works the same as with production hashes.
func testHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	return string(hash)
}

func newAuthFixture(seed ...user.User) (*auth.Manager, *fakeAccounts, *fakeRefreshTokens, *handlers.AuthHandler) {
	mgr := auth.NewManager("test-secret", time.Minute, time.Hour)
	accounts := newFakeAccounts(seed...)
	tokens := newFakeRefreshTokens()
	h := handlers.NewAuthHandler(accounts, accounts, mgr, tokens, config.Config{Env: "test"})

	return mgr, accounts, tokens, h
}

func refreshCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}

	t.Fatalf("no refresh_token cookie in response")

	return nil
}

func TestSignUpHandler_CreatesStudentSession(t *testing.T) {
	mgr, accounts, tokens, h := newAuthFixture()
	r := setupRouter(http.MethodPost, "/auth/signup", h.SignUp)

	req := newJSONRequest(http.MethodPost, "/auth/signup", `{"email":"new@campus.edu","password":"correct-horse","name":"Nia"}`)
	w := serve(r, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string    `json:"accessToken"`
		User        user.User `json:"user"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.User.Role != user.RoleStudent {
		t.Fatalf("signups must start as students, got %s", resp.User.Role)
	}

	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", w.Body.String())
	}

	claims, err := mgr.VerifyAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != user.RoleStudent {
		t.Fatalf("claims do not match the new account: %+v", claims)
	}

	cookie := refreshCookieFrom(t, w)

	refreshClaims, err := mgr.VerifyRefreshToken(cookie.Value)
	if err != nil {
		t.Fatalf("refresh cookie does not verify: %v", err)
	}

	row, ok := tokens.get(refreshClaims.JTI)
	if !ok {
		t.Fatalf("refresh session was not persisted")
	}
	if row.TokenHash != mgr.HashRefreshToken(cookie.Value) {
		t.Fatalf("stored hash does not match the issued token")
	}

	if _, err := accounts.GetByEmail(context.Background(), "new@campus.edu"); err != nil {
		t.Fatalf("account was not stored: %v", err)
	}
}

func TestSignUpHandler_EmailTaken(t *testing.T) {
	existing := user.User{ID: uuid.NewString(), Email: "dup@campus.edu", Role: user.RoleStudent, Active: true}
	_, _, _, h := newAuthFixture(existing)
	r := setupRouter(http.MethodPost, "/auth/signup", h.SignUp)

	req := newJSONRequest(http.MethodPost, "/auth/signup", `{"email":"dup@campus.edu","password":"correct-horse","name":"Dup"}`)
	w := serve(r, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	seeded := user.User{
		ID:           uuid.NewString(),
		Email:        "s@campus.edu",
		PasswordHash: "",
		Role:         user.RoleStudent,
		Active:       true,
	}

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown email", body: `{"email":"ghost@campus.edu","password":"correct-horse"}`},
		{name: "wrong password", body: `{"email":"s@campus.edu","password":"wrong-horse"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeded.PasswordHash = testHash(t, "correct-horse")
			_, _, _, h := newAuthFixture(seeded)
			r := setupRouter(http.MethodPost, "/auth/login", h.Login)

			w := serve(r, newJSONRequest(http.MethodPost, "/auth/login", tt.body))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
			}

			if e := decodeErr(t, w); e.Error.Code != "invalid_credentials" {
				t.Fatalf("expected code invalid_credentials, got %s", e.Error.Code)
			}
		})
	}
}

func TestLoginHandler_DeactivatedAccount(t *testing.T) {
	seeded := user.User{
		ID:           uuid.NewString(),
		Email:        "gone@campus.edu",
		PasswordHash: testHash(t, "correct-horse"),
		Role:         user.RoleStudent,
		Active:       false,
	}

	_, _, tokens, h := newAuthFixture(seeded)
	r := setupRouter(http.MethodPost, "/auth/login", h.Login)

	w := serve(r, newJSONRequest(http.MethodPost, "/auth/login", `{"email":"gone@campus.edu","password":"correct-horse"}`))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d, body=%s", w.Code, w.Body.String())
	}

	if e := decodeErr(t, w); e.Error.Code != "account_deactivated" {
		t.Fatalf("expected code account_deactivated, got %s", e.Error.Code)
	}

	if len(tokens.rows) != 0 {
		t.Fatalf("deactivated login must not mint a session")
	}
}

func TestRefreshHandler_RotatesToken(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "s@campus.edu", Role: user.RoleStudent, Active: true}

	mgr, _, tokens, h := newAuthFixture(u)
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	raw, jti, expiresAt, err := mgr.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	tokens.rows[jti] = postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: mgr.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	req := newJSONRequest(http.MethodPost, "/auth/refresh", "")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})
	w := serve(r, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	old, _ := tokens.get(jti)
	if old.RevokedAt == nil || old.ReplacedBy == nil {
		t.Fatalf("presented token must be revoked with a successor, got %+v", old)
	}

	successor, ok := tokens.get(*old.ReplacedBy)
	if !ok || successor.RevokedAt != nil {
		t.Fatalf("successor session missing or already revoked: %+v", successor)
	}

	cookie := refreshCookieFrom(t, w)
	if cookie.Value == raw {
		t.Fatalf("rotation must issue a new cookie value")
	}
	if successor.TokenHash != mgr.HashRefreshToken(cookie.Value) {
		t.Fatalf("successor row does not match the new cookie")
	}
}

func TestRefreshHandler_MissingCookie(t *testing.T) {
	_, _, _, h := newAuthFixture()
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	w := serve(r, newJSONRequest(http.MethodPost, "/auth/refresh", ""))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
	}

	if e := decodeErr(t, w); e.Error.Code != "no_refresh" {
		t.Fatalf("expected code no_refresh, got %s", e.Error.Code)
	}
}

func TestRefreshHandler_ReplayRevokesAllSessions(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "s@campus.edu", Role: user.RoleStudent, Active: true}

	mgr, _, tokens, h := newAuthFixture(u)
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	raw, jti, expiresAt, err := mgr.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	// the presented token was already rotated away
	rotatedAt := time.Now().UTC()
	tokens.rows[jti] = postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: mgr.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		RevokedAt: &rotatedAt,
		CreatedAt: rotatedAt,
	}

	// a live session from the legitimate rotation chain
	tokens.rows["live-session"] = postgres.RefreshTokenRow{
		ID:        "live-session",
		UserID:    u.ID,
		TokenHash: "other-hash",
		ExpiresAt: expiresAt,
		CreatedAt: rotatedAt,
	}

	req := newJSONRequest(http.MethodPost, "/auth/refresh", "")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})
	w := serve(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
	}

	live, _ := tokens.get("live-session")
	if live.RevokedAt == nil {
		t.Fatalf("a replayed token must take down every session for the account")
	}
}

func TestRefreshHandler_ExpiredRow(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "s@campus.edu", Role: user.RoleStudent, Active: true}

	mgr, _, tokens, h := newAuthFixture(u)
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	// JWT still verifies, but the stored session has lapsed
	raw, jti, _, err := mgr.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	tokens.rows[jti] = postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: mgr.HashRefreshToken(raw),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}

	req := newJSONRequest(http.MethodPost, "/auth/refresh", "")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})
	w := serve(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
	}

	if e := decodeErr(t, w); e.Error.Code != "expired_refresh" {
		t.Fatalf("expected code expired_refresh, got %s", e.Error.Code)
	}
}

func TestLogoutHandler_AlwaysNoContent(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Email: "s@campus.edu", Role: user.RoleStudent, Active: true}

	mgr, _, tokens, h := newAuthFixture(u)
	r := setupRouter(http.MethodPost, "/auth/logout", h.Logout)

	// without a cookie
	w := serve(r, newJSONRequest(http.MethodPost, "/auth/logout", ""))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without a session, got %d", w.Code)
	}

	// with a live session
	raw, jti, expiresAt, err := mgr.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	tokens.rows[jti] = postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: mgr.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	req := newJSONRequest(http.MethodPost, "/auth/logout", "")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})
	w = serve(r, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	row, _ := tokens.get(jti)
	if row.RevokedAt == nil {
		t.Fatalf("logout must revoke the presented session")
	}

	cookie := refreshCookieFrom(t, w)
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("logout must clear the cookie, got value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}
