package servicedef

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/service/catalog"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/httputil"
)

// Handler exposes the read side of the ServiceDefinition mirror. Writes come
// only from upstream events.
type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/services/:id", h.GetService)
}

func (h *Handler) GetService(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid service ID", err))
		return
	}

	svc, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, svc)
}
