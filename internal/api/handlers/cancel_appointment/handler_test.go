package cancel_appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/api/middleware"
	"github.com/queueease/booking-service/internal/service/appointments"
	"github.com/queueease/booking-service/internal/service/appointments/models"
	"github.com/queueease/booking-service/pkg/logger"
)

type fakeService struct {
	gotID  string
	gotReq *models.CancelRequest
	err    error
}

func (f *fakeService) Cancel(_ context.Context, id string, req *models.CancelRequest) (*models.AppointmentResponse, error) {
	f.gotID = id
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.AppointmentResponse{ID: id, Status: "cancelled", CancellationReason: req.Reason}, nil
}

func doRequest(h *Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/a-1/cancel", strings.NewReader(body))
	r = mux.SetURLVars(r, map[string]string{"appointmentId": "a-1"})
	r = r.WithContext(middleware.WithUserID(r.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.Handle(w, r)
	return w
}

func TestHandle_Cancelled(t *testing.T) {
	svc := &fakeService{}

	w := doRequest(NewHandler(svc, logger.NewNop()), `{"reason":"Feeling better"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a-1", svc.gotID)
	assert.Equal(t, "user-1", svc.gotReq.UserID)
	require.NotNil(t, svc.gotReq.Reason)
	assert.Equal(t, "Feeling better", *svc.gotReq.Reason)

	var resp models.AppointmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Status)
}

func TestHandle_EmptyBody(t *testing.T) {
	svc := &fakeService{}

	w := doRequest(NewHandler(svc, logger.NewNop()), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.gotReq.Reason)
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", appointments.ErrAppointmentNotFound, http.StatusNotFound, handlers.KindNotFound},
		{"access denied", appointments.ErrAccessDenied, http.StatusForbidden, handlers.KindAccessDenied},
		{"already cancelled", appointments.ErrInvalidTransition, http.StatusConflict, handlers.KindInvalidTransition},
		{"internal", appointments.ErrInternal, http.StatusInternalServerError, handlers.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(NewHandler(&fakeService{err: tt.err}, logger.NewNop()), "")

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Error)
		})
	}
}
