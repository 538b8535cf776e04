package update_schedule

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
	msgInvalidRequestBody  = "invalid request body"
	msgInstitutionNotFound = "institution not found"
	msgServiceNotFound     = "service not found"
	msgMissingUserID       = "missing user identity"
	msgForbidden           = "only institution staff can change schedule settings"
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

// Handle PUT /api/v1/institutions/{institutionId}/schedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	institutionID := mux.Vars(r)["institutionId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PUT /institutions/{id}/schedule - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.UpsertScheduleRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /institutions/{id}/schedule - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	req.UserID = userID
	req.InstitutionID = institutionID

	cfg, err := h.service.Upsert(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, schedule.ErrInstitutionNotFound):
			handlers.RespondNotFound(w, msgInstitutionNotFound)

		case errors.Is(err, schedule.ErrServiceNotFound):
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("PUT /institutions/{id}/schedule - Access denied: institution_id=%s, user_id=%s", institutionID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("PUT /institutions/{id}/schedule - Failed to save schedule: institution_id=%s, error=%v", institutionID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /institutions/{id}/schedule - Schedule saved: institution_id=%s, level=%s", institutionID, cfg.Level)
	handlers.RespondJSON(w, http.StatusOK, cfg)
}
