package cancel_appointment

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/service/appointments"
	"github.com/queueease/booking-service/internal/service/appointments/models"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgNotFound           = "appointment not found"
	msgMissingUserID      = "missing user identity"
	msgForbidden          = "access denied"
	msgInvalidTransition  = "appointment cannot be cancelled in its current status"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{appointmentId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/cancel - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CancelAppointmentRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/cancel - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appointment, err := h.service.Cancel(r.Context(), appointmentID, &models.CancelRequest{
		UserID: userID,
		Reason: req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/cancel - Access denied: appointment_id=%s, user_id=%s", appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidTransition):
			h.logger.Warn("POST /appointments/{id}/cancel - Invalid transition: appointment_id=%s", appointmentID)
			handlers.RespondConflict(w, handlers.KindInvalidTransition, msgInvalidTransition)

		case errors.Is(err, appointments.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("POST /appointments/{id}/cancel - Failed to cancel: appointment_id=%s, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/cancel - Appointment cancelled: appointment_id=%s, user_id=%s", appointmentID, userID)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
