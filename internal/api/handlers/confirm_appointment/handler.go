package confirm_appointment

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/service/appointments"
)

const (
	msgNotFound          = "appointment not found"
	msgMissingUserID     = "missing user identity"
	msgForbidden         = "only institution staff can confirm appointments"
	msgInvalidTransition = "only pending appointments can be confirmed"
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

// Handle POST /api/v1/appointments/{appointmentId}/confirm
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/confirm - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	appointment, err := h.service.Confirm(r.Context(), appointmentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/confirm - Access denied: appointment_id=%s, user_id=%s", appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidTransition):
			handlers.RespondConflict(w, handlers.KindInvalidTransition, msgInvalidTransition)

		default:
			h.logger.Error("POST /appointments/{id}/confirm - Failed to confirm: appointment_id=%s, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/confirm - Appointment confirmed: appointment_id=%s", appointmentID)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
