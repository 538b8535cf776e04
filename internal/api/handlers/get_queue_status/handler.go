package get_queue_status

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/queueease/booking-service/internal/api/handlers"
	estimateQueue "github.com/queueease/booking-service/internal/usecase/estimate_queue"
)

const msgServiceNotFound = "service not found"

type Handler struct {
	useCase EstimateQueueUseCase
	logger  Logger
}

func NewHandler(useCase EstimateQueueUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/queue-status/{serviceId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["serviceId"]

	result, err := h.useCase.Execute(r.Context(), &estimateQueue.Request{ServiceID: serviceID})
	if err != nil {
		switch {
		case errors.Is(err, estimateQueue.ErrServiceNotFound):
			h.logger.Warn("GET /queue-status/{id} - Service not found: service_id=%s", serviceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, estimateQueue.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("GET /queue-status/{id} - Failed to estimate queue: service_id=%s, error=%v", serviceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
