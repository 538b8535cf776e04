package list_institutions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/service/catalog"
	"github.com/queueease/booking-service/internal/service/catalog/models"
)

const msgInvalidFilter = "invalid filter: type must be hospital, government or temple"

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

// Handle GET /api/v1/institutions?type=hospital&q=city
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &models.ListInstitutionsRequest{
		Search: strings.TrimSpace(query.Get("q")),
	}
	if t := strings.TrimSpace(query.Get("type")); t != "" && t != "all" {
		req.Type = &t
	}

	result, err := h.service.List(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidInput):
			h.logger.Warn("GET /institutions - Invalid filter: %v", err)
			handlers.RespondBadRequest(w, msgInvalidFilter)

		default:
			h.logger.Error("GET /institutions - Failed to list institutions: %v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /institutions - Returned %d institutions", result.Total)
	handlers.RespondJSON(w, http.StatusOK, result)
}
