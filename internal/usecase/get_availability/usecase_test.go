package get_availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/domain"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/pkg/logger"
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

type fakeAppointments struct {
	items []*domain.Appointment
}

func (r *fakeAppointments) GetWithFilter(_ context.Context, f domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	out := make([]*domain.Appointment, 0)
	for _, a := range r.items {
		if f.ServiceID != nil && a.ServiceID != *f.ServiceID {
			continue
		}
		if f.StartDate != nil && a.Date.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && a.Date.After(*f.EndDate) {
			continue
		}
		if !f.IncludeInactive && !a.IsActive() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type fakeCatalog struct{}

var consultation = &domain.Service{ID: "101", InstitutionID: "1", Name: "General Consultation", EstimatedTimeMinutes: 15}

func (fakeCatalog) GetService(_ context.Context, id string) (*domain.Service, error) {
	if id == consultation.ID {
		return consultation, nil
	}
	return nil, catalogRepo.ErrServiceNotFound
}

type fakeSchedule struct {
	cfg *domain.ScheduleConfig
}

func (s fakeSchedule) Resolve(_ context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error) {
	if s.cfg != nil {
		return s.cfg, nil
	}
	return &domain.ScheduleConfig{
		InstitutionID:       institutionID,
		ServiceID:           serviceID,
		OpenTime:            domain.DefaultOpenTime,
		CloseTime:           domain.DefaultCloseTime,
		SlotDurationMinutes: domain.DefaultSlotDurationMinutes,
	}, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateFormat, s)
	require.NoError(t, err)
	return d
}

func newUseCase(repo *fakeAppointments, cfg *domain.ScheduleConfig, now time.Time) *UseCase {
	uc := NewUseCase(repo, fakeCatalog{}, fakeSchedule{cfg: cfg}, logger.NewNop())
	uc.timeProvider = fixedTime{now: now}
	return uc
}

func TestExecute_DefaultGrid(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	uc := newUseCase(&fakeAppointments{}, nil, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: day(t, "2025-05-02")})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 16)
	assert.Equal(t, "09:00", resp.Slots[0].StartTime.String())
	assert.Equal(t, "16:30", resp.Slots[15].StartTime.String())
	assert.Equal(t, "17:00", resp.Slots[15].EndTime.String())
	assert.Equal(t, "1", resp.InstitutionID)

	// Сетка без разрывов с фиксированным шагом
	for i := 1; i < len(resp.Slots); i++ {
		gap, err := resp.Slots[i].StartTime.Sub(resp.Slots[i-1].StartTime)
		require.NoError(t, err)
		assert.Equal(t, 30, gap)
		assert.Equal(t, resp.Slots[i-1].EndTime, resp.Slots[i].StartTime)
		assert.True(t, resp.Slots[i].Available)
	}
}

func TestExecute_IdempotentIDs(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	uc := newUseCase(&fakeAppointments{}, nil, now)
	req := &Request{ServiceID: "101", Date: day(t, "2025-05-02")}

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Slots), len(second.Slots))
	for i := range first.Slots {
		assert.Equal(t, first.Slots[i].ID, second.Slots[i].ID)
	}
	assert.Equal(t, "2025-05-02-09:00-101", first.Slots[0].ID)
}

func TestExecute_BookedAndCancelled(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	date := day(t, "2025-05-02")
	repo := &fakeAppointments{items: []*domain.Appointment{
		{ID: "a1", ServiceID: "101", Date: date, StartTime: "10:00", Status: domain.StatusConfirmed},
		{ID: "a2", ServiceID: "101", Date: date, StartTime: "10:30", Status: domain.StatusCancelled},
		{ID: "a3", ServiceID: "102", Date: date, StartTime: "11:00", Status: domain.StatusConfirmed},
	}}
	uc := newUseCase(repo, nil, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: date})
	require.NoError(t, err)

	byStart := map[string]bool{}
	for _, s := range resp.Slots {
		byStart[s.StartTime.String()] = s.Available
	}
	assert.False(t, byStart["10:00"])
	assert.True(t, byStart["10:30"], "cancelled appointment frees the slot")
	assert.True(t, byStart["11:00"], "other services do not block the slot")
}

func TestExecute_OverlapAfterGridChange(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	date := day(t, "2025-05-02")
	// Запись сделана на 30-минутной сетке, сейчас сетка 15-минутная
	repo := &fakeAppointments{items: []*domain.Appointment{
		{ID: "a1", ServiceID: "101", Date: date, StartTime: "10:00", EndTime: "10:30", Status: domain.StatusConfirmed},
	}}
	cfg := &domain.ScheduleConfig{ID: 3, InstitutionID: "1", OpenTime: "09:30", CloseTime: "11:00", SlotDurationMinutes: 15}
	uc := newUseCase(repo, cfg, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: date})
	require.NoError(t, err)

	byStart := map[string]bool{}
	for _, s := range resp.Slots {
		byStart[s.StartTime.String()] = s.Available
	}
	assert.True(t, byStart["09:45"])
	assert.False(t, byStart["10:00"])
	assert.False(t, byStart["10:15"], "slot inside an existing booking is taken")
	assert.True(t, byStart["10:30"])
}

func TestExecute_TodayStartedSlots(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 10, 0, 0, time.UTC)
	uc := newUseCase(&fakeAppointments{}, nil, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: day(t, "2025-05-01")})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 16)
	for _, s := range resp.Slots {
		if s.StartTime.IsBefore("12:30") {
			assert.False(t, s.Available, s.StartTime.String())
		} else {
			assert.True(t, s.Available, s.StartTime.String())
		}
	}
}

func TestExecute_SizeFromService(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	cfg := &domain.ScheduleConfig{ID: 7, InstitutionID: "1", OpenTime: "10:00", CloseTime: "11:00", SlotDurationMinutes: 30, SizeFromService: true}
	uc := newUseCase(&fakeAppointments{}, cfg, now)

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: day(t, "2025-05-02")})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 4)
	assert.Equal(t, "10:15", resp.Slots[0].EndTime.String())
	assert.Equal(t, 15, resp.Slots[0].DurationMinutes())
}

func TestExecute_Errors(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	limited := &domain.ScheduleConfig{ID: 1, InstitutionID: "1", OpenTime: "09:00", CloseTime: "17:00", SlotDurationMinutes: 30, AdvanceBookingDays: 7}

	tests := []struct {
		name    string
		cfg     *domain.ScheduleConfig
		req     Request
		wantErr error
	}{
		{"missing service", nil, Request{Date: day(t, "2025-05-11")}, ErrInvalidInput},
		{"missing date", nil, Request{ServiceID: "101"}, ErrInvalidInput},
		{"unknown service", nil, Request{ServiceID: "999", Date: day(t, "2025-05-11")}, ErrServiceNotFound},
		{"yesterday", nil, Request{ServiceID: "101", Date: day(t, "2025-05-09")}, ErrPastDate},
		{"beyond window", limited, Request{ServiceID: "101", Date: day(t, "2025-05-18")}, ErrOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newUseCase(&fakeAppointments{}, tt.cfg, now)
			req := tt.req
			_, err := uc.Execute(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Последний день окна доступен
	uc := newUseCase(&fakeAppointments{}, limited, now)
	_, err := uc.Execute(context.Background(), &Request{ServiceID: "101", Date: day(t, "2025-05-17")})
	assert.NoError(t, err)
}
