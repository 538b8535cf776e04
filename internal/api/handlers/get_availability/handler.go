package get_availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/domain"
	getAvailability "github.com/queueease/booking-service/internal/usecase/get_availability"
)

const (
	msgMissingService  = "query parameter service is required"
	msgInvalidDate     = "invalid date, expected YYYY-MM-DD"
	msgServiceNotFound = "service not found"
	msgPastDate        = "date is in the past"
	msgOutOfWindow     = "date is beyond the advance booking window"
)

type Handler struct {
	useCase GetAvailabilityUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailabilityUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/availability?service={serviceId}&date={YYYY-MM-DD}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	serviceID := query.Get("service")
	if serviceID == "" {
		handlers.RespondBadRequest(w, msgMissingService)
		return
	}

	date, err := time.Parse(domain.DateFormat, query.Get("date"))
	if err != nil {
		h.logger.Warn("GET /availability - Invalid date: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &getAvailability.Request{
		ServiceID: serviceID,
		Date:      date,
	})
	if err != nil {
		switch {
		case errors.Is(err, getAvailability.ErrServiceNotFound):
			h.logger.Warn("GET /availability - Service not found: service_id=%s", serviceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getAvailability.ErrPastDate):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindPastDate, msgPastDate)

		case errors.Is(err, getAvailability.ErrOutOfWindow):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindOutOfWindow, msgOutOfWindow)

		case errors.Is(err, getAvailability.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("GET /availability - Failed to get availability: service_id=%s, error=%v", serviceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
