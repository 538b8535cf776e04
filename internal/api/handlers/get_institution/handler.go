package get_institution

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/service/catalog"
)

const msgNotFound = "institution not found"

type Handler struct {
	service CatalogService
	logger  Logger
}

func NewHandler(service CatalogService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/institutions/{institutionId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	institutionID := mux.Vars(r)["institutionId"]

	institution, err := h.service.Get(r.Context(), institutionID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInstitutionNotFound):
			h.logger.Warn("GET /institutions/{id} - Institution not found: institution_id=%s", institutionID)
			handlers.RespondNotFound(w, msgNotFound)

		default:
			h.logger.Error("GET /institutions/{id} - Failed to get institution: institution_id=%s, error=%v", institutionID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, institution)
}
