package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/service/booking"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PUT("/:id/status", h.UpdateBookingStatus)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid booking request", err))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid booking ID", err))
		return
	}

	found, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) ListBookings(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid pagination", err))
		return
	}
	page.Normalize()

	var (
		items []*model.Booking
		total int
		err   error
	)
	switch {
	case c.Query("customerId") != "":
		customerID, parseErr := uuid.Parse(c.Query("customerId"))
		if parseErr != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid customer ID", parseErr))
			return
		}
		items, total, err = h.service.ListBookingsForCustomer(c.Request.Context(), customerID, &page)
	case c.Query("businessId") != "":
		businessID, parseErr := uuid.Parse(c.Query("businessId"))
		if parseErr != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid business ID", parseErr))
			return
		}
		items, total, err = h.service.ListBookingsForBusiness(c.Request.Context(), businessID, &page)
	default:
		httputil.RespondWithError(c, apperrors.Validation("customerId or businessId is required", nil))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, items, page.Page, page.Limit, total)
}

func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid booking ID", err))
		return
	}

	var req model.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid status request", err))
		return
	}

	updated, err := h.service.UpdateBookingStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}
