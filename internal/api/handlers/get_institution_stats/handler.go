package get_institution_stats

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/service/appointments"
	"github.com/queueease/booking-service/internal/service/appointments/models"
)

const (
	msgInvalidFrom         = "invalid from, expected YYYY-MM-DD"
	msgInvalidTo           = "invalid to, expected YYYY-MM-DD"
	msgInstitutionNotFound = "institution not found"
	msgMissingUserID       = "missing user identity"
	msgForbidden           = "only institution staff can view statistics"
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

// Handle GET /api/v1/institutions/{institutionId}/stats?from={YYYY-MM-DD}&to={YYYY-MM-DD}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	institutionID := mux.Vars(r)["institutionId"]

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /institutions/{id}/stats - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	from, err := parseOptionalDate(r.URL.Query().Get("from"))
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidFrom)
		return
	}
	to, err := parseOptionalDate(r.URL.Query().Get("to"))
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidTo)
		return
	}

	stats, err := h.service.Stats(r.Context(), &models.StatsRequest{
		UserID:        userID,
		InstitutionID: institutionID,
		From:          from,
		To:            to,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInstitutionNotFound):
			handlers.RespondNotFound(w, msgInstitutionNotFound)

		case errors.Is(err, appointments.ErrAccessDenied):
			h.logger.Warn("GET /institutions/{id}/stats - Access denied: institution_id=%s, user_id=%s", institutionID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, appointments.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("GET /institutions/{id}/stats - Failed to get stats: institution_id=%s, error=%v", institutionID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
