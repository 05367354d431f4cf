package availability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/service/availability"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rules := r.Group("/availability/rules")
	{
		rules.POST("", h.CreateRule)
		rules.GET("", h.ListRules)
		rules.DELETE("/:id", h.DeleteRule)
	}
	r.GET("/services/:id/slots", h.GetAvailableSlots)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req model.CreateAvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid rule request", err))
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, rule)
}

func (h *Handler) ListRules(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("businessId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid business ID", err))
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), businessID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, rules)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid rule ID", err))
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid service ID", err))
		return
	}

	businessID, err := uuid.Parse(c.Query("businessId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid business ID", err))
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), h.service.Location())
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid date, want YYYY-MM-DD", err))
		return
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), businessID, serviceID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"slots": slots})
}
