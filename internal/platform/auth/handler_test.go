package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*echo.Echo, *SessionManager) {
	t.Helper()
	sessions := newTestSessions(t)
	h := NewHandler(NewStaticAuthenticator("admin", "doctor12/", sessions), sessions)

	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(SessionMiddleware(SessionConfig{Sessions: sessions}))
	h.RegisterRoutes(api)
	return e, sessions
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_LoginLogoutCycle(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"doctor12/"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sess Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected a token")
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/auth/session", "", sess.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"username":"admin"`) {
		t.Errorf("unexpected session body %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/logout", "", sess.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/auth/session", "", sess.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", rec.Code)
	}
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	e, _ := newTestHandler(t)

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"doctor","password":"doctor12/"}`,
		`{}`,
	} {
		rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid credentials") {
			t.Errorf("%s: unexpected body %s", body, rec.Body.String())
		}
	}
}

func TestHandler_LoginBadBody(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"username":`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_SessionRequiresToken(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/auth/session", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
