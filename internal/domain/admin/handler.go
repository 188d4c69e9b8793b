package admin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin))
	g.GET("/settings/doctor-name", h.GetDoctorName)
	g.PUT("/settings/doctor-name", h.UpdateDoctorName)
	g.GET("/admin/users", h.ListAdmins)
	g.POST("/admin/users", h.CreateAdmin)
	g.DELETE("/admin/users/:id", h.DeleteAdmin)
}

func (h *Handler) GetDoctorName(c echo.Context) error {
	name, err := h.svc.DoctorName(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"doctor_name": name})
}

func (h *Handler) UpdateDoctorName(c echo.Context) error {
	var in DoctorNameInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	st, err := h.svc.UpdateDoctorName(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"doctor_name": st.Value})
}

func (h *Handler) ListAdmins(c echo.Context) error {
	users, err := h.svc.ListAdmins(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateAdmin(c echo.Context) error {
	var in AdminInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.CreateAdmin(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) DeleteAdmin(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = h.svc.DeleteAdmin(c.Request().Context(), id, c.QueryParam("confirm") == "true")
	if errors.Is(err, ErrLastAdmin) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
