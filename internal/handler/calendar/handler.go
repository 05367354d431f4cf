package calendar

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/service/calendar"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/httputil"
)

type Handler struct {
	service  *calendar.Service
	location *time.Location
}

func NewHandler(service *calendar.Service, location *time.Location) *Handler {
	return &Handler{service: service, location: location}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/businesses/:id/calendar", h.GetBusinessCalendar)
}

func (h *Handler) GetBusinessCalendar(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid business ID", err))
		return
	}

	// The reference duration is ambiguous for businesses offering services of
	// different lengths, so the service to aggregate for is an explicit
	// required parameter.
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("serviceId is required", err))
		return
	}

	start, err := time.ParseInLocation("2006-01-02", c.Query("start"), h.location)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid start date, want YYYY-MM-DD", err))
		return
	}

	end, err := time.ParseInLocation("2006-01-02", c.Query("end"), h.location)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid end date, want YYYY-MM-DD", err))
		return
	}

	days, err := h.service.GetBusinessCalendar(c.Request.Context(), businessID, serviceID, start, end)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, days)
}
