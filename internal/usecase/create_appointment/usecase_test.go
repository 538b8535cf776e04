package create_appointment

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/internal/domain"
	appointmentRepo "github.com/queueease/booking-service/internal/infra/storage/appointment"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/internal/integrations/events"
	"github.com/queueease/booking-service/internal/integrations/userservice"
	"github.com/queueease/booking-service/pkg/logger"
	"github.com/queueease/booking-service/pkg/metrics"
	"github.com/queueease/booking-service/pkg/ptr"
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

// memoryStore хранилище записей в памяти. skipCheck имитирует гонку, в которой
// проверка слота не видит чужую запись и срабатывает уникальный индекс.
type memoryStore struct {
	mu        sync.Mutex
	items     []*domain.Appointment
	counters  map[string]int
	skipCheck bool
	calls     []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counters: map[string]int{}}
}

func (s *memoryStore) GetWithFilter(_ context.Context, f domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "GetWithFilter")

	out := make([]*domain.Appointment, 0)
	if s.skipCheck {
		return out, nil
	}
	for _, a := range s.items {
		if f.ServiceID != nil && a.ServiceID != *f.ServiceID {
			continue
		}
		if f.StartDate != nil && !a.Date.Equal(*f.StartDate) {
			continue
		}
		if !f.IncludeInactive && !a.IsActive() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memoryStore) NextQueueSeq(_ context.Context, serviceID string, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "NextQueueSeq")

	key := serviceID + "/" + date.Format(domain.DateFormat)
	s.counters[key]++
	return s.counters[key], nil
}

func (s *memoryStore) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "Create")

	for _, existing := range s.items {
		if existing.IsActive() && existing.ServiceID == a.ServiceID &&
			existing.Date.Equal(a.Date) && existing.StartTime == a.StartTime {
			return nil, appointmentRepo.ErrSlotNotAvailable
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.items = append(s.items, a)
	return a, nil
}

// serialTx выполняет транзакции строго по одной
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

var (
	hospital = &domain.Institution{
		ID:   "1",
		Name: "City General Hospital",
		Type: domain.InstitutionHospital,
		Services: []*domain.Service{
			{ID: "101", InstitutionID: "1", Name: "General Consultation", EstimatedTimeMinutes: 15},
			{ID: "102", InstitutionID: "1", Name: "Blood Test", EstimatedTimeMinutes: 10},
		},
	}
	office = &domain.Institution{
		ID:   "2",
		Name: "Regional Passport Office",
		Type: domain.InstitutionGovernment,
		Services: []*domain.Service{
			{ID: "201", InstitutionID: "2", Name: "Passport Application", EstimatedTimeMinutes: 20},
		},
	}
)

type fakeCatalog struct{}

func (fakeCatalog) GetInstitution(_ context.Context, id string) (*domain.Institution, error) {
	for _, i := range []*domain.Institution{hospital, office} {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, catalogRepo.ErrInstitutionNotFound
}

func (fakeCatalog) GetService(_ context.Context, id string) (*domain.Service, error) {
	for _, i := range []*domain.Institution{hospital, office} {
		if s := i.FindService(id); s != nil {
			return s, nil
		}
	}
	return nil, catalogRepo.ErrServiceNotFound
}

// fakeSchedule сетка по длительности услуги, 09:00-17:00, окно 30 дней
type fakeSchedule struct{}

func (fakeSchedule) Resolve(_ context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error) {
	return &domain.ScheduleConfig{
		ID:                  1,
		InstitutionID:       institutionID,
		ServiceID:           serviceID,
		OpenTime:            "09:00",
		CloseTime:           "17:00",
		SlotDurationMinutes: 30,
		SizeFromService:     true,
		AdvanceBookingDays:  30,
	}, nil
}

type fakeUsers struct {
	err error
}

func (u fakeUsers) GetUserWithGracefulDegradation(_ context.Context, userID string) (*userservice.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	return &userservice.User{ID: userID, Name: "Jane Doe", Phone: "+1-555-0100"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AppointmentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

var now = time.Date(2025, 5, 1, 11, 5, 0, 0, time.UTC)

func newUseCase(store *memoryStore, users fakeUsers, pub *recordingPublisher) *UseCase {
	uc := NewUseCase(store, fakeCatalog{}, fakeSchedule{}, users, &serialTx{}, pub, (*metrics.Metrics)(nil), logger.NewNop())
	uc.timeProvider = fixedTime{now: now}
	return uc
}

func request(date, start, serviceID string) *Request {
	d, _ := time.Parse(domain.DateFormat, date)
	return &Request{
		UserID:        "user-1",
		InstitutionID: "1",
		ServiceID:     serviceID,
		Date:          d,
		TimeSlotID:    date + "-" + start + "-" + serviceID,
	}
}

func TestExecute_ConfirmedWithQueueNumber(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	uc := newUseCase(store, fakeUsers{}, pub)

	resp, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusConfirmed), resp.Status)
	assert.Regexp(t, regexp.MustCompile(`^H\d{3}$`), resp.QueueNumber)
	assert.Equal(t, "H001", resp.QueueNumber)
	assert.Equal(t, "10:00", resp.StartTime.String())
	assert.Equal(t, "10:15", resp.EndTime.String())
	assert.Equal(t, "2025-05-02-10:00-101", resp.TimeSlotID)
	assert.Equal(t, "General Consultation", resp.ServiceName)
	assert.Equal(t, "City General Hospital", resp.InstitutionName)
	require.NotNil(t, resp.ContactName)
	assert.Equal(t, "Jane Doe", *resp.ContactName)
	assert.NotEmpty(t, resp.ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.AppointmentCreated, pub.events[0].Type)
	assert.Equal(t, resp.ID, pub.events[0].AppointmentID)

	// Следующая запись на ту же услугу и дату получает следующий номер
	next, err := uc.Execute(context.Background(), request("2025-05-02", "10:15", "101"))
	require.NoError(t, err)
	assert.Equal(t, "H002", next.QueueNumber)
}

func TestExecute_ConcurrentSameSlot(t *testing.T) {
	store := newMemoryStore()
	uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})

	const workers = 10
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		succeeded   int
		unavailable int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSlotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, unavailable)
	assert.Len(t, store.items, 1)
}

func TestExecute_UniqueIndexMapsToSlotUnavailable(t *testing.T) {
	store := newMemoryStore()
	uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	require.NoError(t, err)

	store.skipCheck = true
	_, err = uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_CounterLockedBeforeSlotCheck(t *testing.T) {
	store := newMemoryStore()
	uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	require.NoError(t, err)

	// Счётчик берётся первым: его блокировка упорядочивает записи на услугу и дату
	assert.Equal(t, []string{"NextQueueSeq", "GetWithFilter", "Create"}, store.calls)
}

func TestExecute_OverlappingBookingRejected(t *testing.T) {
	store := newMemoryStore()
	date, _ := time.Parse(domain.DateFormat, "2025-05-02")
	// Запись 10:00-10:30 осталась от прежней длительности услуги
	store.items = append(store.items, &domain.Appointment{
		ID:        "legacy",
		ServiceID: "101",
		Date:      date,
		StartTime: "10:00",
		EndTime:   "10:30",
		Status:    domain.StatusConfirmed,
	})
	uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), request("2025-05-02", "10:15", "101"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Len(t, store.items, 1)

	_, err = uc.Execute(context.Background(), request("2025-05-02", "10:30", "101"))
	assert.NoError(t, err)
}

func TestExecute_CancelledSlotIsReusable(t *testing.T) {
	store := newMemoryStore()
	uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})

	first, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	require.NoError(t, err)
	store.items[0].Status = domain.StatusCancelled

	second, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "H002", second.QueueNumber)
}

func TestExecute_UserDirectory(t *testing.T) {
	t.Run("degraded directory books without contact data", func(t *testing.T) {
		uc := newUseCase(newMemoryStore(), fakeUsers{err: userservice.ErrServiceDegraded}, &recordingPublisher{})
		resp, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
		require.NoError(t, err)
		assert.Nil(t, resp.ContactName)
		assert.Nil(t, resp.ContactPhone)
	})

	t.Run("unknown user", func(t *testing.T) {
		uc := newUseCase(newMemoryStore(), fakeUsers{err: userservice.ErrUserNotFound}, &recordingPublisher{})
		_, err := uc.Execute(context.Background(), request("2025-05-02", "10:00", "101"))
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestExecute_Rejections(t *testing.T) {
	withInstitution := func(r *Request, id string) *Request {
		r.InstitutionID = id
		return r
	}
	withSlot := func(r *Request, slot string) *Request {
		r.TimeSlotID = slot
		return r
	}

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{"missing slot", withSlot(request("2025-05-02", "10:00", "101"), ""), ErrInvalidInput},
		{"too long notes", func() *Request {
			r := request("2025-05-02", "10:00", "101")
			r.Notes = ptr.Ptr(string(make([]byte, domain.MaxNotesLength+1)))
			return r
		}(), ErrInvalidInput},
		{"malformed slot", withSlot(request("2025-05-02", "10:00", "101"), "tomorrow-10am"), ErrInvalidSlot},
		{"slot of another date", withSlot(request("2025-05-02", "10:00", "101"), "2025-05-03-10:00-101"), ErrInvalidSlot},
		{"slot of another service", withSlot(request("2025-05-02", "10:00", "101"), "2025-05-02-10:00-102"), ErrInvalidSlot},
		{"off grid", request("2025-05-02", "10:07", "101"), ErrInvalidSlot},
		{"outside hours", request("2025-05-02", "17:00", "101"), ErrInvalidSlot},
		{"unknown institution", withInstitution(request("2025-05-02", "10:00", "101"), "9"), ErrInstitutionNotFound},
		{"unknown service", request("2025-05-02", "10:00", "999"), ErrServiceNotFound},
		{"service of another institution", request("2025-05-02", "10:00", "201"), ErrInvalidService},
		{"yesterday", request("2025-04-30", "10:00", "101"), ErrPastDate},
		{"beyond window", request("2025-06-01", "10:00", "101"), ErrOutOfWindow},
		{"started today", request("2025-05-01", "11:00", "101"), ErrSlotUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			uc := newUseCase(store, fakeUsers{}, &recordingPublisher{})
			_, err := uc.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.items)
		})
	}

	// Сегодняшний слот, который ещё не начался, доступен
	uc := newUseCase(newMemoryStore(), fakeUsers{}, &recordingPublisher{})
	_, err := uc.Execute(context.Background(), request("2025-05-01", "11:15", "101"))
	assert.NoError(t, err)
}
