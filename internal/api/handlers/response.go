package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// Виды ошибок в теле ответа
const (
	KindInvalidInput      = "InvalidInput"
	KindNotFound          = "NotFound"
	KindAccessDenied      = "AccessDenied"
	KindUnauthorized      = "Unauthorized"
	KindSlotUnavailable   = "SlotUnavailable"
	KindInvalidTransition = "InvalidTransition"
	KindPastDate          = "PastDate"
	KindOutOfWindow       = "OutOfWindow"
	KindInvalidService    = "InvalidService"
	KindInvalidSlot       = "InvalidSlot"
	KindRateLimited       = "RateLimited"
	KindInternal          = "Internal"
)

const msgInternalError = "internal server error"

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// ErrEmptyBody возвращается, когда тело запроса пустое
var ErrEmptyBody = errors.New("empty request body")

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodeJSON читает тело запроса в v
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}

	return json.Unmarshal(body, v)
}

// DecodeOptionalJSON как DecodeJSON, но пустое тело не считается ошибкой
func DecodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := DecodeJSON(r, v)
	if errors.Is(err, ErrEmptyBody) {
		return nil
	}
	return err
}

// RespondJSON пишет data в ответ с указанным статусом
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal","message":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// RespondError пишет ошибку вида {"error": kind, "message": message}
func RespondError(w http.ResponseWriter, status int, kind, message string) {
	RespondJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, KindInvalidInput, message)
}

func RespondNotFound(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusNotFound, KindNotFound, message)
}

func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, KindUnauthorized, message)
}

func RespondForbidden(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusForbidden, KindAccessDenied, message)
}

func RespondConflict(w http.ResponseWriter, kind, message string) {
	RespondError(w, http.StatusConflict, kind, message)
}

func RespondTooManyRequests(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusTooManyRequests, KindRateLimited, message)
}

func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, KindInternal, msgInternalError)
}
