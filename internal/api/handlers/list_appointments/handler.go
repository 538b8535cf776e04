package list_appointments

import (
	"errors"
	"net/http"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/service/appointments"
	"github.com/queueease/booking-service/internal/service/appointments/models"
)

const (
	msgMissingUserID = "missing user identity"
	msgForbidden     = "access denied"
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

// Handle GET /api/v1/appointments?userId={userId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	result, err := h.service.ListForUser(r.Context(), &models.ListForUserRequest{
		ActorID: actorID,
		UserID:  r.URL.Query().Get("userId"),
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /appointments - Access denied: actor_id=%s", actorID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /appointments - Failed to list appointments: actor_id=%s, error=%v", actorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /appointments - Returned %d upcoming, %d past for user_id=%s",
		len(result.Upcoming), len(result.Past), actorID)
	handlers.RespondJSON(w, http.StatusOK, result)
}
