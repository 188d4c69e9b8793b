package engagement

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/auth"
	"github.com/followup/followup/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin))

	g.GET("/health-tracking", h.ListHealth)
	g.POST("/health-tracking", h.RecordHealth)
	g.DELETE("/health-tracking/:id", h.DeleteHealth)
	g.GET("/patients/:id/health-tracking", h.ListPatientHealth)

	g.GET("/medications", h.ListMedications)
	g.POST("/medications", h.CreateMedication)
	g.GET("/medications/:id", h.GetMedication)
	g.PUT("/medications/:id", h.UpdateMedication)
	g.POST("/medications/:id/deactivate", h.DeactivateMedication)
	g.DELETE("/medications/:id", h.DeleteMedication)
	g.GET("/patients/:id/medications", h.ListPatientMedications)

	g.GET("/notifications", h.ListNotifications)
	g.POST("/notifications", h.ScheduleNotification)
	g.GET("/notifications/:id", h.GetNotification)
	g.POST("/notifications/:id/cancel", h.CancelNotification)
	g.DELETE("/notifications/:id", h.DeleteNotification)
	g.GET("/patients/:id/notifications", h.ListPatientNotifications)

	g.GET("/surveys", h.ListSurveys)
	g.GET("/surveys/templates", h.GetSurveyTemplates)
	g.POST("/surveys", h.CreateSurvey)
	g.GET("/surveys/:id", h.GetSurvey)
	g.POST("/surveys/:id/responses", h.SubmitResponses)
	g.DELETE("/surveys/:id", h.DeleteSurvey)
	g.GET("/patients/:id/surveys", h.ListPatientSurveys)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func confirmed(c echo.Context) bool {
	return c.QueryParam("confirm") == "true"
}

// -- Health Tracking Handlers --

func (h *Handler) RecordHealth(c echo.Context) error {
	var in TrackingInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.RecordHealth(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListHealth(c echo.Context) error {
	all, err := h.svc.ListHealth(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) DeleteHealth(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteHealth(c.Request().Context(), id, confirmed(c)); err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientHealth(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.HealthForPatient(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(recs, pagination.FromContext(c)))
}

// -- Medication Schedule Handlers --

func (h *Handler) CreateMedication(c echo.Context) error {
	var in MedicationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.CreateMedication(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	all, err := h.svc.ListMedications(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in MedicationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.UpdateMedication(c.Request().Context(), id, in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeactivateMedication(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.DeactivateMedication(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), id, confirmed(c)); err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPatientMedications honours ?active=true to drop inactive schedules.
func (h *Handler) ListPatientMedications(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	var meds []*MedicationSchedule
	if c.QueryParam("active") == "true" {
		meds, err = h.svc.ActiveMedications(ctx, id)
	} else {
		meds, err = h.svc.MedicationsForPatient(ctx, id)
	}
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, meds)
}

// -- Notification Schedule Handlers --

func (h *Handler) ScheduleNotification(c echo.Context) error {
	var in NotificationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	n, err := h.svc.ScheduleNotification(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNotification(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotifications(c echo.Context) error {
	all, err := h.svc.ListNotifications(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) CancelNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.CancelNotification(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNotification(c.Request().Context(), id, confirmed(c)); err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientNotifications(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ns, err := h.svc.NotificationsForPatient(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ns)
}

// -- Survey Handlers --

func (h *Handler) GetSurveyTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.SurveyTemplates())
}

func (h *Handler) CreateSurvey(c echo.Context) error {
	var in SurveyInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sv, err := h.svc.CreateSurvey(c.Request().Context(), in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sv)
}

func (h *Handler) GetSurvey(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sv, err := h.svc.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sv)
}

func (h *Handler) ListSurveys(c echo.Context) error {
	all, err := h.svc.ListSurveys(c.Request().Context())
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) SubmitResponses(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in ResponsesInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sv, err := h.svc.SubmitResponses(c.Request().Context(), id, in)
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sv)
}

func (h *Handler) DeleteSurvey(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSurvey(c.Request().Context(), id, confirmed(c)); err != nil {
		return apierr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPatientSurveys honours ?pending=true to keep unanswered surveys only.
func (h *Handler) ListPatientSurveys(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	var surveys []*PatientSurvey
	if c.QueryParam("pending") == "true" {
		surveys, err = h.svc.PendingSurveys(ctx, id)
	} else {
		surveys, err = h.svc.SurveysForPatient(ctx, id)
	}
	if err != nil {
		return apierr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, surveys)
}
