package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/followup/followup/internal/platform/apierr"
)

// Handler serves login, logout and session inspection.
type Handler struct {
	authn    Authenticator
	sessions *SessionManager
}

func NewHandler(authn Authenticator, sessions *SessionManager) *Handler {
	return &Handler{authn: authn, sessions: sessions}
}

// RegisterRoutes mounts the auth routes. loginMiddleware is applied to the
// login route only, typically a stricter rate limit.
func (h *Handler) RegisterRoutes(api *echo.Group, loginMiddleware ...echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, loginMiddleware...)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/session", h.Session)
}

func (h *Handler) Login(c echo.Context) error {
	var creds Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sess, err := h.authn.Authenticate(c.Request().Context(), creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.sessions.Revoke(c.Request().Context(), SessionIDFromContext(c.Request().Context())); err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Session(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"username": UserIDFromContext(ctx),
		"roles":    RolesFromContext(ctx),
	})
}
