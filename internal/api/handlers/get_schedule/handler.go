package get_schedule

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
	msgInstitutionNotFound = "institution not found"
	msgServiceNotFound     = "service not found"
	msgMissingUserID       = "missing user identity"
	msgForbidden           = "only institution staff can view schedule settings"
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

// Handle GET /api/v1/institutions/{institutionId}/schedule?serviceId={serviceId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	institutionID := mux.Vars(r)["institutionId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /institutions/{id}/schedule - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	req := &models.GetScheduleRequest{
		UserID:        userID,
		InstitutionID: institutionID,
	}
	if serviceID := r.URL.Query().Get("serviceId"); serviceID != "" {
		req.ServiceID = &serviceID
	}

	cfg, err := h.service.Get(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInstitutionNotFound):
			handlers.RespondNotFound(w, msgInstitutionNotFound)

		case errors.Is(err, schedule.ErrServiceNotFound):
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("GET /institutions/{id}/schedule - Access denied: institution_id=%s, user_id=%s", institutionID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /institutions/{id}/schedule - Failed to get schedule: institution_id=%s, error=%v", institutionID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cfg)
}
