package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"

	"accounts-backend/internal/config"
	"accounts-backend/internal/database"
	"accounts-backend/internal/ratelimit"
	"accounts-backend/internal/security"
	"accounts-backend/internal/server"
	"accounts-backend/internal/testutil"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type app struct {
	router *gin.Engine
	store  *database.Store
}

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret:       "test-session-secret",
		JWTSecret:           "test-jwt-secret",
		AccessTokenTTL:      time.Hour,
		RefreshTokenTTL:     time.Hour,
		RefreshRotateWithin: 0,
		DefaultRole:         "usuario",
		AdminRole:           "admin",
	}
}

func newApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	store := testutil.NewStore(t)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	return &app{router: server.NewRouter(cfg, store, tokens, nil), store: store}
}

func (a *app) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(c *qt.C, w *httptest.ResponseRecorder) map[string]any {
	c.Helper()
	var out map[string]any
	c.Assert(json.Unmarshal(w.Body.Bytes(), &out), qt.IsNil, qt.Commentf("body: %s", w.Body.String()))
	return out
}

type tokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

func (a *app) login(c *qt.C, email, password string) (tokens, *httptest.ResponseRecorder) {
	c.Helper()
	w := a.do(http.MethodPost, "/login", map[string]string{"email": email, "password": password, "device": "test"})
	c.Assert(w.Code, qt.Equals, http.StatusOK, qt.Commentf("body: %s", w.Body.String()))
	var tk tokens
	c.Assert(json.Unmarshal(w.Body.Bytes(), &tk), qt.IsNil)
	c.Assert(tk.Access, qt.Not(qt.Equals), "")
	c.Assert(tk.Refresh, qt.Not(qt.Equals), "")
	return tk, w
}

func (a *app) seedAdmin(c *qt.C, t *testing.T) tokens {
	c.Helper()
	hash, err := security.HashPassword("admin-secret")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "root@example.com", hash, "admin")
	tk, _ := a.login(c, "root@example.com", "admin-secret")
	return tk
}

func bearer(tk tokens) []string {
	return []string{"Authorization", "Bearer " + tk.Access}
}

func TestHealthAndIndex(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)

	w := a.do(http.MethodGet, "/health", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(w.Body.String(), qt.Equals, "ok")

	w = a.do(http.MethodGet, "/", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	routes := decode(c, w)["routes"].(map[string]any)
	c.Assert(routes["/login"], qt.IsNotNil)
	c.Assert(routes["/users"], qt.IsNotNil)
}

func TestRegisterLoginMe(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)

	reg := map[string]string{
		"first_name": "Ana",
		"last_name":  "Gomez",
		"email":      "Ana@Example.com",
		"password":   "secret1",
	}
	w := a.do(http.MethodPost, "/users/register", reg)
	c.Assert(w.Code, qt.Equals, http.StatusCreated, qt.Commentf("body: %s", w.Body.String()))
	body := decode(c, w)
	c.Assert(body["email"], qt.Equals, "ana@example.com")
	c.Assert(body["active"], qt.Equals, true)

	w = a.do(http.MethodPost, "/users/register", reg)
	c.Assert(w.Code, qt.Equals, http.StatusConflict)
	c.Assert(decode(c, w)["detail"], qt.Equals, "USER_ALREADY_EXISTS")

	w = a.do(http.MethodPost, "/login", map[string]string{"email": "ana@example.com", "password": "wrong!!"})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(decode(c, w)["detail"], qt.Equals, "INVALID_CREDENTIALS")

	w = a.do(http.MethodPost, "/login", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)

	tk, loginResp := a.login(c, "ANA@example.com", "secret1")

	w = a.do(http.MethodGet, "/login/me", nil, bearer(tk)...)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	me := decode(c, w)
	c.Assert(me["first_name"], qt.Equals, "Ana")
	c.Assert(me["role"], qt.Equals, "usuario")
	c.Assert(me["password"], qt.IsNil)

	// the cookie session alone also authenticates
	cookie, _, _ := strings.Cut(loginResp.Header().Get("Set-Cookie"), ";")
	c.Assert(cookie, qt.Not(qt.Equals), "")
	w = a.do(http.MethodGet, "/login/me", nil, "Cookie", cookie)
	c.Assert(w.Code, qt.Equals, http.StatusOK)

	w = a.do(http.MethodGet, "/login/me", nil)
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	w = a.do(http.MethodGet, "/login/me", nil, "Authorization", "Bearer garbage")
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)

	w := a.do(http.MethodPost, "/users/register", map[string]string{
		"first_name": "Ana", "last_name": "Gomez", "email": "not-an-email", "password": "secret1",
	})
	c.Assert(w.Code, qt.Equals, http.StatusUnprocessableEntity)

	w = a.do(http.MethodPost, "/users/register", map[string]string{
		"first_name": "Ana", "last_name": "Gomez", "email": "ana@example.com", "password": "123",
	})
	c.Assert(w.Code, qt.Equals, http.StatusUnprocessableEntity)
}

func TestRefreshAndLogout(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	hash, err := security.HashPassword("secret1")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "r@example.com", hash, "usuario")

	tk, _ := a.login(c, "r@example.com", "secret1")

	w := a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	var refreshed tokens
	c.Assert(json.Unmarshal(w.Body.Bytes(), &refreshed), qt.IsNil)
	c.Assert(refreshed.Access, qt.Not(qt.Equals), "")
	// far from expiry: the refresh token is kept
	c.Assert(refreshed.Refresh, qt.Equals, tk.Refresh)

	w = a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": "unknown"})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(decode(c, w)["detail"], qt.Equals, "REFRESH_INVALID")

	w = a.do(http.MethodPost, "/login/logout", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusOK)

	w = a.do(http.MethodPost, "/login/logout", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusNotFound)
	c.Assert(decode(c, w)["detail"], qt.Equals, "SESSION_NOT_FOUND")

	w = a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
}

func TestRefreshRotatesNearExpiry(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.RefreshRotateWithin = 2 * time.Hour
	a := newApp(t, cfg)
	hash, err := security.HashPassword("secret1")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "rot@example.com", hash, "usuario")

	tk, _ := a.login(c, "rot@example.com", "secret1")

	w := a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	var rotated tokens
	c.Assert(json.Unmarshal(w.Body.Bytes(), &rotated), qt.IsNil)
	c.Assert(rotated.Refresh, qt.Not(qt.Equals), tk.Refresh)

	w = a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": tk.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	w = a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": rotated.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
}

func TestLoginRateLimited(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	store := testutil.NewStore(t)
	r := server.NewRouter(cfg, store, security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), denyAll{})
	a := &app{router: r, store: store}

	w := a.do(http.MethodPost, "/login", map[string]string{"email": "x@example.com", "password": "secret1"})
	c.Assert(w.Code, qt.Equals, http.StatusTooManyRequests)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	hash, err := security.HashPassword("secret1")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "plain@example.com", hash, "usuario")
	tk, _ := a.login(c, "plain@example.com", "secret1")

	w := a.do(http.MethodGet, "/roles", nil, bearer(tk)...)
	c.Assert(w.Code, qt.Equals, http.StatusForbidden)
	c.Assert(decode(c, w)["detail"], qt.Equals, "ACCESS_DENIED")

	w = a.do(http.MethodGet, "/users", nil)
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
}

func TestAdminProvisioning(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	admin := a.seedAdmin(c, t)
	auth := bearer(admin)

	w := a.do(http.MethodPost, "/roles", map[string]string{"name": "soporte", "description": "Soporte"}, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusCreated, qt.Commentf("body: %s", w.Body.String()))
	roleID := decode(c, w)["id"].(float64)

	w = a.do(http.MethodPost, "/roles", map[string]string{"name": "soporte"}, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusConflict)
	c.Assert(decode(c, w)["detail"], qt.Equals, "ALREADY_EXISTS")

	w = a.do(http.MethodPost, "/personal-data", map[string]string{"first_name": "Ana", "last_name": "Gomez"}, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusCreated)
	pdID := decode(c, w)["id"].(float64)

	newUser := map[string]any{
		"email": "ana@example.com", "password": "secret1",
		"personal_data_id": pdID, "role_id": roleID,
	}
	w = a.do(http.MethodPost, "/users", newUser, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusCreated, qt.Commentf("body: %s", w.Body.String()))
	userID := decode(c, w)["id"].(float64)

	w = a.do(http.MethodPost, "/users", newUser, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusConflict)

	w = a.do(http.MethodPost, "/users", map[string]any{
		"email": "ghost@example.com", "password": "secret1", "personal_data_id": pdID, "role_id": 9999,
	}, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusConflict)
	c.Assert(decode(c, w)["detail"], qt.Equals, "REFERENCE_VIOLATION")

	w = a.do(http.MethodGet, "/users/by-email?email=ANA@example.com", nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(decode(c, w)["role"], qt.Equals, "soporte")

	// role still referenced
	w = a.do(http.MethodDelete, "/roles/"+itoa(roleID), nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusConflict)

	ana, _ := a.login(c, "ana@example.com", "secret1")
	w = a.do(http.MethodPost, "/users/"+itoa(userID)+"/deactivate", nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(decode(c, w)["sessions_closed"], qt.Equals, float64(1))

	w = a.do(http.MethodGet, "/login/me", nil, bearer(ana)...)
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(decode(c, w)["detail"], qt.Equals, "USER_INACTIVE")
	w = a.do(http.MethodPost, "/login/refresh", map[string]string{"refresh_token": ana.Refresh})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	w = a.do(http.MethodPost, "/login", map[string]string{"email": "ana@example.com", "password": "secret1"})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)

	w = a.do(http.MethodPost, "/users/"+itoa(userID)+"/reactivate", nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	a.login(c, "ana@example.com", "secret1")

	w = a.do(http.MethodDelete, "/users/"+itoa(userID), nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusNoContent)
	w = a.do(http.MethodDelete, "/users/"+itoa(userID), nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusNotFound)
	w = a.do(http.MethodDelete, "/users/abc", nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)

	w = a.do(http.MethodGet, "/audit", nil, auth...)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	var logs []map[string]any
	c.Assert(json.Unmarshal(w.Body.Bytes(), &logs), qt.IsNil)
	// role, personal data, user, deactivate, reactivate, delete
	c.Assert(len(logs), qt.Equals, 6)
	c.Assert(logs[0]["action"], qt.Equals, "delete")
}

func itoa(f float64) string {
	return strconv.Itoa(int(f))
}

func (a *app) doForm(method, path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestSessionCookieAttributes(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	hash, err := security.HashPassword("secret1")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "c@example.com", hash, "usuario")

	_, w := a.login(c, "c@example.com", "secret1")
	setCookie := w.Header().Get("Set-Cookie")
	c.Assert(setCookie, qt.Contains, "accounts_session=")
	c.Assert(setCookie, qt.Contains, "HttpOnly")
	c.Assert(setCookie, qt.Contains, "SameSite=Strict")
	c.Assert(setCookie, qt.Contains, "Secure")
}

func TestCookieDoesNotAuthorizeWrites(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	hash, err := security.HashPassword("admin-secret")
	c.Assert(err, qt.IsNil)
	testutil.SeedUser(t, a.store, "root@example.com", hash, "admin")

	_, login := a.login(c, "root@example.com", "admin-secret")
	cookie, _, _ := strings.Cut(login.Header().Get("Set-Cookie"), ";")

	w := a.doForm(http.MethodPost, "/roles", url.Values{"name": {"pwned"}},
		"Cookie", cookie, "Origin", "https://evil.example")
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)

	_, err = a.store.RoleByName(context.Background(), "pwned")
	c.Assert(errors.Is(err, database.ErrNotFound), qt.IsTrue)

	// reads still work from the browser session
	w = a.do(http.MethodGet, "/roles", nil, "Cookie", cookie)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
}

func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	c := qt.New(t)
	a := newApp(t, nil)
	admin := a.seedAdmin(c, t)
	long := strings.Repeat("p", 80)

	w := a.do(http.MethodPost, "/users/register", map[string]string{
		"first_name": "Ana", "last_name": "Gomez", "email": "ana@example.com", "password": long,
	})
	c.Assert(w.Code, qt.Equals, http.StatusUnprocessableEntity, qt.Commentf("body: %s", w.Body.String()))
	c.Assert(decode(c, w)["detail"], qt.Equals, "INVALID_DATA")

	w = a.do(http.MethodPost, "/users", map[string]any{
		"email": "bob@example.com", "password": long, "personal_data_id": 1, "role_id": 1,
	}, bearer(admin)...)
	c.Assert(w.Code, qt.Equals, http.StatusUnprocessableEntity)

	// exactly at the limit is accepted
	w = a.do(http.MethodPost, "/users/register", map[string]string{
		"first_name": "Ana", "last_name": "Gomez", "email": "ana@example.com", "password": strings.Repeat("p", 72),
	})
	c.Assert(w.Code, qt.Equals, http.StatusCreated)
}

func TestLoginRateLimitedOnRedis(t *testing.T) {
	c := qt.New(t)
	mr := miniredis.RunT(c)
	limiter, err := ratelimit.NewRedis(context.Background(), mr.Addr(), 2, time.Minute)
	c.Assert(err, qt.IsNil)
	defer limiter.Close()

	cfg := testConfig()
	store := testutil.NewStore(t)
	a := &app{
		router: server.NewRouter(cfg, store, security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), limiter),
		store:  store,
	}

	body := map[string]string{"email": "Ana@Example.com", "password": "wrong!!"}
	c.Assert(a.do(http.MethodPost, "/login", body).Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(a.do(http.MethodPost, "/login", body).Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(a.do(http.MethodPost, "/login", body).Code, qt.Equals, http.StatusTooManyRequests)

	// httptest requests come from 192.0.2.1
	c.Assert(mr.Keys(), qt.DeepEquals, []string{"ratelimit:login:ana@example.com|192.0.2.1"})
}
