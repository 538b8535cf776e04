package get_availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/api/handlers"
	"github.com/queueease/booking-service/internal/domain"
	getAvailability "github.com/queueease/booking-service/internal/usecase/get_availability"
	"github.com/queueease/booking-service/pkg/logger"
)

type fakeUseCase struct {
	got *getAvailability.Request
	err error
}

func (f *fakeUseCase) Execute(_ context.Context, req *getAvailability.Request) (*getAvailability.Response, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &getAvailability.Response{
		Date:          req.Date,
		ServiceID:     req.ServiceID,
		InstitutionID: "1",
		Slots: []domain.TimeSlot{
			{ID: "2025-05-02-09:00-101", StartTime: "09:00", EndTime: "09:30", Available: false, ServiceID: "101"},
			{ID: "2025-05-02-09:30-101", StartTime: "09:30", EndTime: "10:00", Available: true, ServiceID: "101"},
		},
	}, nil
}

func doRequest(h *Handler, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Handle(w, httptest.NewRequest(http.MethodGet, "/api/v1/availability"+query, nil))
	return w
}

func TestHandle_Slots(t *testing.T) {
	uc := &fakeUseCase{}

	w := doRequest(NewHandler(uc, logger.NewNop()), "?service=101&date=2025-05-02")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), uc.got.Date)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-05-02", resp.Date)
	require.Len(t, resp.Slots, 2)
	assert.False(t, resp.Slots[0].Available)
	assert.Equal(t, "09:30", resp.Slots[1].StartTime)
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"missing service", "?date=2025-05-02", nil, http.StatusBadRequest, handlers.KindInvalidInput},
		{"bad date", "?service=101&date=tomorrow", nil, http.StatusBadRequest, handlers.KindInvalidInput},
		{"unknown service", "?service=999&date=2025-05-02", getAvailability.ErrServiceNotFound, http.StatusNotFound, handlers.KindNotFound},
		{"past date", "?service=101&date=2025-05-01", getAvailability.ErrPastDate, http.StatusBadRequest, handlers.KindPastDate},
		{"out of window", "?service=101&date=2026-05-01", getAvailability.ErrOutOfWindow, http.StatusBadRequest, handlers.KindOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(NewHandler(&fakeUseCase{err: tt.err}, logger.NewNop()), tt.query)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Error)
		})
	}
}
