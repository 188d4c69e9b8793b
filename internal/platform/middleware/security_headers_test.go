package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func serveWithSecurityHeaders(method, path string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.Add(method, path, handler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSecurityHeaders_SetsAllHeaders(t *testing.T) {
	rec := serveWithSecurityHeaders(http.MethodGet, "/api/v1/patients", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{})
	})

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "0",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
		"Cache-Control":             "no-store",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeaders_PatientResponsesAreNeverCached(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		handler echo.HandlerFunc
		code    int
	}{
		{"portal read", http.MethodGet, "/api/v1/dashboard/patients/1", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]int{"balance": 80})
		}, http.StatusOK},
		{"create", http.MethodPost, "/api/v1/patients", func(c echo.Context) error {
			return c.JSON(http.StatusCreated, map[string]string{"code_number": "P100"})
		}, http.StatusCreated},
		{"handler error", http.MethodGet, "/api/v1/patients/1", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusNotFound, "patient 1: not found")
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWithSecurityHeaders(tt.method, tt.path, tt.handler)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control: got %q, want no-store", got)
			}
			if got := rec.Header().Get("Content-Security-Policy"); got != "default-src 'none'; frame-ancestors 'none'" {
				t.Errorf("Content-Security-Policy: got %q", got)
			}
		})
	}
}

func TestSecurityHeaders_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "confirmation required")
	})(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected the handler's 409 to pass through, got %v", err)
	}
}
