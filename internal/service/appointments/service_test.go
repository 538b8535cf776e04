package appointments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/domain"
	appointmentRepo "github.com/queueease/booking-service/internal/infra/storage/appointment"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/internal/integrations/events"
	"github.com/queueease/booking-service/internal/service/appointments/models"
	"github.com/queueease/booking-service/pkg/logger"
	"github.com/queueease/booking-service/pkg/metrics"
	"github.com/queueease/booking-service/pkg/ptr"
	"github.com/queueease/booking-service/pkg/types"
)

// fakeRepo in-memory репозиторий с тем же условным переходом статусов, что и SQL
type fakeRepo struct {
	mu            sync.Mutex
	appointments  map[string]*domain.Appointment
	lastCompleted *time.Time
}

func newFakeRepo(list ...*domain.Appointment) *fakeRepo {
	r := &fakeRepo{appointments: make(map[string]*domain.Appointment)}
	for _, a := range list {
		r.appointments[a.ID] = a
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) GetByUserID(_ context.Context, userID string) ([]*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Appointment, 0)
	for _, a := range r.appointments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *fakeRepo) transition(id string, to domain.AppointmentStatus, apply func(a *domain.Appointment)) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	if !a.Status.CanTransitionTo(to) {
		return nil, appointmentRepo.ErrInvalidTransition
	}
	a.Status = to
	if apply != nil {
		apply(a)
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) Cancel(_ context.Context, id string, reason *string, at time.Time) (*domain.Appointment, error) {
	return r.transition(id, domain.StatusCancelled, func(a *domain.Appointment) {
		a.CancellationReason = reason
		a.CancelledAt = &at
	})
}

func (r *fakeRepo) Complete(_ context.Context, id string, minutes *int, at time.Time) (*domain.Appointment, error) {
	return r.transition(id, domain.StatusCompleted, func(a *domain.Appointment) {
		a.ServiceMinutes = minutes
		a.CompletedAt = &at
	})
}

func (r *fakeRepo) Confirm(_ context.Context, id string) (*domain.Appointment, error) {
	return r.transition(id, domain.StatusConfirmed, nil)
}

func (r *fakeRepo) LastCompletedAt(context.Context, string, time.Time) (*time.Time, error) {
	return r.lastCompleted, nil
}

func (r *fakeRepo) CountByDay(_ context.Context, _ string, from, to time.Time) ([]domain.DailyBookings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[time.Time]int{}
	for _, a := range r.appointments {
		d := domain.DateOnly(a.Date)
		if a.IsActive() && !d.Before(from) && !d.After(to) {
			counts[d]++
		}
	}
	out := make([]domain.DailyBookings, 0)
	for d, c := range counts {
		out = append(out, domain.DailyBookings{Date: d, Count: c})
	}
	return out, nil
}

func (r *fakeRepo) CountByStatus(_ context.Context, _ string, from, to time.Time) (map[domain.AppointmentStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.AppointmentStatus]int{}
	for _, a := range r.appointments {
		d := domain.DateOnly(a.Date)
		if !d.Before(from) && !d.After(to) {
			out[a.Status]++
		}
	}
	return out, nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetInstitution(_ context.Context, id string) (*domain.Institution, error) {
	if id != "1" {
		return nil, catalogRepo.ErrInstitutionNotFound
	}
	return &domain.Institution{ID: "1", Type: domain.InstitutionHospital, ManagerIDs: []string{"staff-1"}}, nil
}

type recordingPublisher struct {
	events []events.AppointmentEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.AppointmentEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var now = time.Date(2026, 10, 17, 11, 0, 0, 0, time.UTC)

func appointment(id, userID string, date time.Time, status domain.AppointmentStatus) *domain.Appointment {
	start := types.TimeString("10:00")
	return &domain.Appointment{
		ID:            id,
		UserID:        userID,
		InstitutionID: "1",
		ServiceID:     "101",
		Date:          domain.DateOnly(date),
		StartTime:     start,
		EndTime:       "10:15",
		Status:        status,
		QueueNumber:   "H001",
	}
}

func newService(repo *fakeRepo) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(repo, fakeCatalog{}, pub, (*metrics.Metrics)(nil), logger.NewNop())
	svc.timeProvider = fixedClock{now: now}
	return svc, pub
}

func TestListForUser_PartitionsByDateAndStatus(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	repo := newFakeRepo(
		appointment("a-1", "u-1", yesterday, domain.StatusConfirmed),
		appointment("a-2", "u-1", tomorrow, domain.StatusConfirmed),
		appointment("a-3", "u-1", now, domain.StatusPending),
		appointment("a-4", "u-1", tomorrow, domain.StatusCancelled),
		appointment("a-5", "u-1", now, domain.StatusCompleted),
		appointment("a-6", "u-2", tomorrow, domain.StatusConfirmed),
	)
	svc, _ := newService(repo)

	resp, err := svc.ListForUser(context.Background(), &models.ListForUserRequest{ActorID: "u-1"})
	require.NoError(t, err)

	ids := func(list []models.AppointmentResponse) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.ID)
		}
		sort.Strings(out)
		return out
	}

	assert.Equal(t, []string{"a-2", "a-3"}, ids(resp.Upcoming))
	assert.Equal(t, []string{"a-1", "a-4", "a-5"}, ids(resp.Past))
}

func TestListForUser_OtherUserDenied(t *testing.T) {
	svc, _ := newService(newFakeRepo())

	_, err := svc.ListForUser(context.Background(), &models.ListForUserRequest{ActorID: "u-1", UserID: "u-2"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCancel(t *testing.T) {
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		status  domain.AppointmentStatus
		actor   string
		wantErr error
	}{
		{"owner cancels confirmed", domain.StatusConfirmed, "u-1", nil},
		{"owner cancels pending", domain.StatusPending, "u-1", nil},
		{"manager cancels confirmed", domain.StatusConfirmed, "staff-1", nil},
		{"stranger cannot cancel", domain.StatusConfirmed, "u-2", ErrAccessDenied},
		{"completed is terminal", domain.StatusCompleted, "u-1", ErrInvalidTransition},
		{"cancelled is terminal", domain.StatusCancelled, "u-1", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo(appointment("a-1", "u-1", tomorrow, tt.status))
			svc, pub := newService(repo)

			resp, err := svc.Cancel(context.Background(), "a-1", &models.CancelRequest{
				UserID: tt.actor,
				Reason: ptr.Ptr("schedule conflict"),
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, pub.events)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "cancelled", resp.Status)
			assert.Equal(t, "schedule conflict", *resp.CancellationReason)
			require.Len(t, pub.events, 1)
			assert.Equal(t, events.AppointmentCancelled, pub.events[0].Type)
		})
	}
}

func TestCancel_NotFound(t *testing.T) {
	svc, _ := newService(newFakeRepo())

	_, err := svc.Cancel(context.Background(), "missing", &models.CancelRequest{UserID: "u-1"})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancel_PublishFailureDoesNotFail(t *testing.T) {
	repo := newFakeRepo(appointment("a-1", "u-1", now, domain.StatusConfirmed))
	svc, pub := newService(repo)
	pub.err = errors.New("broker down")

	resp, err := svc.Cancel(context.Background(), "a-1", &models.CancelRequest{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
}

func TestComplete(t *testing.T) {
	repo := newFakeRepo(
		appointment("a-1", "u-1", now, domain.StatusConfirmed),
		appointment("a-2", "u-1", now, domain.StatusPending),
	)
	svc, pub := newService(repo)
	ctx := context.Background()

	_, err := svc.Complete(ctx, "a-1", &models.CompleteRequest{UserID: "u-1"})
	assert.ErrorIs(t, err, ErrAccessDenied, "patients cannot complete")

	_, err = svc.Complete(ctx, "a-2", &models.CompleteRequest{UserID: "staff-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending must be confirmed first")

	_, err = svc.Complete(ctx, "a-1", &models.CompleteRequest{UserID: "staff-1", ServiceMinutes: ptr.Ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	resp, err := svc.Complete(ctx, "a-1", &models.CompleteRequest{UserID: "staff-1", ServiceMinutes: ptr.Ptr(12)})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 12, *resp.ServiceMinutes)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.AppointmentCompleted, pub.events[0].Type)

	_, err = svc.Cancel(ctx, "a-1", &models.CancelRequest{UserID: "u-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComplete_DerivesServiceMinutes(t *testing.T) {
	repo := newFakeRepo(
		appointment("a-1", "u-1", now, domain.StatusConfirmed),
		appointment("a-2", "u-2", now, domain.StatusConfirmed),
	)
	svc, _ := newService(repo)
	ctx := context.Background()

	// Первое завершение за день: длительность неизвестна
	resp, err := svc.Complete(ctx, "a-1", &models.CompleteRequest{UserID: "staff-1"})
	require.NoError(t, err)
	assert.Nil(t, resp.ServiceMinutes)

	repo.lastCompleted = ptr.Ptr(now.Add(-14 * time.Minute))
	resp, err = svc.Complete(ctx, "a-2", &models.CompleteRequest{UserID: "staff-1"})
	require.NoError(t, err)
	require.NotNil(t, resp.ServiceMinutes)
	assert.Equal(t, 14, *resp.ServiceMinutes)
}

func TestConfirm(t *testing.T) {
	repo := newFakeRepo(appointment("a-1", "u-1", now, domain.StatusPending))
	svc, _ := newService(repo)

	resp, err := svc.Confirm(context.Background(), "a-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)

	_, err = svc.Confirm(context.Background(), "a-1", "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetByID_Access(t *testing.T) {
	repo := newFakeRepo(appointment("a-1", "u-1", now, domain.StatusConfirmed))
	svc, _ := newService(repo)

	resp, err := svc.GetByID(context.Background(), "a-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17-10:00-101", resp.TimeSlot.ID)
	assert.Equal(t, "10:15", resp.TimeSlot.EndTime)

	_, err = svc.GetByID(context.Background(), "a-1", "staff-1")
	assert.NoError(t, err)

	_, err = svc.GetByID(context.Background(), "a-1", "u-2")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestStats(t *testing.T) {
	repo := newFakeRepo(
		appointment("a-1", "u-1", now, domain.StatusConfirmed),
		appointment("a-2", "u-2", now, domain.StatusPending),
		appointment("a-3", "u-3", now, domain.StatusCompleted),
		appointment("a-4", "u-4", now.AddDate(0, 0, -2), domain.StatusCancelled),
		appointment("a-5", "u-5", now.AddDate(0, 0, -2), domain.StatusCompleted),
	)
	svc, _ := newService(repo)

	resp, err := svc.Stats(context.Background(), &models.StatsRequest{UserID: "staff-1", InstitutionID: "1"})
	require.NoError(t, err)

	assert.Equal(t, "2026-10-11", resp.From)
	assert.Equal(t, "2026-10-17", resp.To)
	assert.Equal(t, 4, resp.TotalBookings)
	assert.Equal(t, 2, resp.ActiveTokens)
	assert.Equal(t, 1, resp.Cancelled)
	assert.Equal(t, 2, resp.Completed)

	require.Len(t, resp.DailyBookings, 7)
	assert.Equal(t, 1, resp.DailyBookings[4].Count)
	assert.Equal(t, 3, resp.DailyBookings[6].Count)

	_, err = svc.Stats(context.Background(), &models.StatsRequest{UserID: "u-1", InstitutionID: "1"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Stats(context.Background(), &models.StatsRequest{
		UserID:        "staff-1",
		InstitutionID: "1",
		From:          ptr.Ptr(now),
		To:            ptr.Ptr(now.AddDate(0, 0, -1)),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
