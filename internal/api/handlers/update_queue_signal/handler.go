package update_queue_signal

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/service/schedule"
	"github.com/queueease/booking-service/internal/service/schedule/models"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgServiceNotFound    = "service not found"
	msgMissingUserID      = "missing user identity"
	msgForbidden          = "only institution staff can update queue signals"
)

type Handler struct {
	service ScheduleService
	logger  Logger
}

func NewHandler(service ScheduleService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PUT /api/v1/queue-status/{serviceId}/signal
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["serviceId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PUT /queue-status/{id}/signal - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req UpdateSignalRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /queue-status/{id}/signal - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	signal, err := h.service.UpdateSignal(r.Context(), &models.UpdateSignalRequest{
		UserID:                userID,
		ServiceID:             serviceID,
		Reason:                req.Reason,
		DelayThresholdMinutes: req.DelayThresholdMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrServiceNotFound), errors.Is(err, schedule.ErrInstitutionNotFound):
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("PUT /queue-status/{id}/signal - Access denied: service_id=%s, user_id=%s", serviceID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, schedule.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("PUT /queue-status/{id}/signal - Failed to update signal: service_id=%s, error=%v", serviceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /queue-status/{id}/signal - Signal updated: service_id=%s, user_id=%s", serviceID, userID)
	handlers.RespondJSON(w, http.StatusOK, signal)
}
