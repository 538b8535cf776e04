package create_appointment

import (
	"errors"
	"net/http"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	createAppointment "github.com/queueease/booking-service/internal/usecase/create_appointment"
)

const (
	msgInvalidRequestBody  = "invalid request body"
	msgInvalidDate         = "invalid date, expected YYYY-MM-DD"
	msgMissingUserID       = "missing user identity"
	msgForbidden           = "cannot book on behalf of another user"
	msgSlotUnavailable     = "selected time slot is not available"
	msgInstitutionNotFound = "institution not found"
	msgServiceNotFound     = "service not found"
	msgUserNotFound        = "user not found"
	msgInvalidService      = "service is not offered by this institution"
	msgInvalidSlot         = "invalid time slot"
	msgPastDate            = "date is in the past"
	msgOutOfWindow         = "date is beyond the advance booking window"
)

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Пользователь записывает только себя
	if req.UserID == "" {
		req.UserID = userID
	}
	if req.UserID != userID {
		h.logger.Warn("POST /appointments - User %s tried to book for %s", userID, req.UserID)
		handlers.RespondForbidden(w, msgForbidden)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest()
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse date: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createAppointment.ErrSlotUnavailable):
			h.logger.Warn("POST /appointments - Slot unavailable: user_id=%s, slot=%s", userID, req.TimeSlotID)
			handlers.RespondConflict(w, handlers.KindSlotUnavailable, msgSlotUnavailable)

		case errors.Is(err, createAppointment.ErrInstitutionNotFound):
			handlers.RespondNotFound(w, msgInstitutionNotFound)

		case errors.Is(err, createAppointment.ErrServiceNotFound):
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createAppointment.ErrUserNotFound):
			handlers.RespondNotFound(w, msgUserNotFound)

		case errors.Is(err, createAppointment.ErrInvalidService):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindInvalidService, msgInvalidService)

		case errors.Is(err, createAppointment.ErrInvalidSlot):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindInvalidSlot, msgInvalidSlot)

		case errors.Is(err, createAppointment.ErrPastDate):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindPastDate, msgPastDate)

		case errors.Is(err, createAppointment.ErrOutOfWindow):
			handlers.RespondError(w, http.StatusBadRequest, handlers.KindOutOfWindow, msgOutOfWindow)

		case errors.Is(err, createAppointment.ErrInvalidInput):
			handlers.RespondBadRequest(w, err.Error())

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: user_id=%s, error=%v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments - Appointment created: id=%s, queue_number=%s, user_id=%s",
		result.ID, result.QueueNumber, userID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
