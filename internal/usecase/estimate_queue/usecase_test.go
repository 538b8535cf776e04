package estimate_queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/infra/cache"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	signalRepo "github.com/queueease/booking-service/internal/infra/storage/queuesignal"
	"github.com/queueease/booking-service/pkg/logger"
	"github.com/queueease/booking-service/pkg/metrics"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fakeAppointments struct {
	items   []*domain.Appointment
	history []int
	reads   int
	err     error
}

func (r *fakeAppointments) GetWithFilter(_ context.Context, f domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*domain.Appointment, 0)
	for _, a := range r.items {
		if f.ServiceID != nil && a.ServiceID != *f.ServiceID {
			continue
		}
		if f.StartDate != nil && !a.Date.Equal(*f.StartDate) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAppointments) RecentServiceMinutes(_ context.Context, _ string, limit int) ([]int, error) {
	if len(r.history) > limit {
		return r.history[:limit], nil
	}
	return r.history, nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetService(_ context.Context, id string) (*domain.Service, error) {
	switch id {
	case "101":
		return consultation, nil
	case "102":
		return &domain.Service{ID: "102", InstitutionID: "1", Name: "Blood Test", EstimatedTimeMinutes: 10}, nil
	}
	return nil, catalogRepo.ErrServiceNotFound
}

func (fakeCatalog) ListServiceIDs(_ context.Context) ([]string, error) {
	return []string{"101", "102", "404"}, nil
}

type fakeSignals struct {
	signal *domain.QueueSignal
}

func (s fakeSignals) Get(_ context.Context, serviceID string) (*domain.QueueSignal, error) {
	if s.signal != nil && s.signal.ServiceID == serviceID {
		return s.signal, nil
	}
	return nil, signalRepo.ErrSignalNotFound
}

func newUseCase(repo *fakeAppointments, store SnapshotStore, c *clock) *UseCase {
	uc := NewUseCase(repo, fakeCatalog{}, fakeSignals{}, store, (*metrics.Metrics)(nil),
		Options{HistorySize: 20, DelayThresholdPercent: 20, SnapshotTTL: 30 * time.Second}, logger.NewNop())
	uc.timeProvider = c
	return uc
}

func TestExecute_ServesFreshSnapshot(t *testing.T) {
	repo := &fakeAppointments{items: []*domain.Appointment{
		token(1, "09:00", domain.StatusConfirmed),
		token(2, "09:30", domain.StatusConfirmed),
	}}
	store := cache.NewMemorySnapshotStore()
	c := &clock{now: now}
	uc := newUseCase(repo, store, c)

	first, err := uc.Execute(context.Background(), &Request{ServiceID: "101"})
	require.NoError(t, err)
	assert.Equal(t, "H001", first.CurrentToken)
	assert.Equal(t, 1, repo.reads)

	// Снимок моложе интервала обновления отдаётся без пересчёта
	c.now = now.Add(10 * time.Second)
	_, err = uc.Execute(context.Background(), &Request{ServiceID: "101"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads)

	// Устаревший снимок пересчитывается
	repo.items[0].Status = domain.StatusCompleted
	c.now = now.Add(45 * time.Second)
	second, err := uc.Execute(context.Background(), &Request{ServiceID: "101"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
	assert.Equal(t, "H002", second.CurrentToken)
	assert.Equal(t, c.now, second.LastUpdated)
}

func TestExecute_Errors(t *testing.T) {
	uc := newUseCase(&fakeAppointments{}, cache.NewMemorySnapshotStore(), &clock{now: now})

	_, err := uc.Execute(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{ServiceID: "999"})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	failing := newUseCase(&fakeAppointments{err: errors.New("connection refused")}, cache.NewMemorySnapshotStore(), &clock{now: now})
	_, err = failing.Execute(context.Background(), &Request{ServiceID: "101"})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExecute_UsesSignal(t *testing.T) {
	repo := &fakeAppointments{items: []*domain.Appointment{token(1, "09:00", domain.StatusConfirmed)}}
	uc := newUseCase(repo, cache.NewMemorySnapshotStore(), &clock{now: now})
	reason := "Doctor called into emergency"
	uc.signalRepo = fakeSignals{signal: &domain.QueueSignal{ServiceID: "101", Reason: &reason}}

	resp, err := uc.Execute(context.Background(), &Request{ServiceID: "101"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reason)
	assert.Equal(t, reason, *resp.Reason)
}

func TestRefreshAll(t *testing.T) {
	repo := &fakeAppointments{items: []*domain.Appointment{token(1, "09:00", domain.StatusConfirmed)}}
	store := cache.NewMemorySnapshotStore()
	uc := newUseCase(repo, store, &clock{now: now})

	failed, err := uc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, failed, "unknown service 404 is counted as failed")

	snapshot, err := store.Get(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "H001", snapshot.CurrentToken)

	_, err = store.Get(context.Background(), "102")
	assert.NoError(t, err)
}

func TestRefresher_StartStop(t *testing.T) {
	uc := newUseCase(&fakeAppointments{}, cache.NewMemorySnapshotStore(), &clock{now: now})

	bad := NewRefresher(uc, "not a schedule", (*metrics.Metrics)(nil), logger.NewNop())
	assert.Error(t, bad.Start(context.Background()))

	r := NewRefresher(uc, "@every 1h", (*metrics.Metrics)(nil), logger.NewNop())
	require.NoError(t, r.Start(context.Background()))
	r.RunOnce(context.Background())
	r.Stop()
}
