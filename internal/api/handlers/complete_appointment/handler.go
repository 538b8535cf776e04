package complete_appointment

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
	msgForbidden          = "only institution staff can complete appointments"
	msgInvalidTransition  = "only confirmed appointments can be completed"
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

// Handle POST /api/v1/appointments/{appointmentId}/complete
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/complete - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CompleteAppointmentRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/complete - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appointment, err := h.service.Complete(r.Context(), appointmentID, &models.CompleteRequest{
		UserID:         userID,
		ServiceMinutes: req.ServiceMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/complete - Access denied: appointment_id=%s, user_id=%s", appointmentID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidTransition):
			handlers.RespondConflict(w, handlers.KindInvalidTransition, msgInvalidTransition)

		case errors.Is(err, appointments.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("POST /appointments/{id}/complete - Failed to complete: appointment_id=%s, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/complete - Appointment completed: appointment_id=%s", appointmentID)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
