package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/pkg/types"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateFormat, s)
	require.NoError(t, err)
	return d
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []AppointmentStatus{StatusPending, StatusConfirmed}, SourcesFor(StatusCancelled))
	assert.Equal(t, []AppointmentStatus{StatusConfirmed}, SourcesFor(StatusCompleted))
	assert.Equal(t, []AppointmentStatus{StatusPending}, SourcesFor(StatusConfirmed))
}

func TestAppointment_IsUpcoming(t *testing.T) {
	now := time.Date(2025, 5, 10, 14, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		date     string
		status   AppointmentStatus
		upcoming bool
	}{
		{"Yesterday confirmed is past", "2025-05-09", StatusConfirmed, false},
		{"Today confirmed is upcoming", "2025-05-10", StatusConfirmed, true},
		{"Tomorrow pending is upcoming", "2025-05-11", StatusPending, true},
		{"Tomorrow cancelled is past", "2025-05-11", StatusCancelled, false},
		{"Today completed is past", "2025-05-10", StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Appointment{Date: date(t, tt.date), Status: tt.status}
			assert.Equal(t, tt.upcoming, a.IsUpcoming(now))
		})
	}
}

func TestAppointment_Overlaps(t *testing.T) {
	a := &Appointment{StartTime: "10:00", EndTime: "10:30"}

	tests := []struct {
		name       string
		start, end types.TimeString
		overlaps   bool
	}{
		{"Same slot", "10:00", "10:30", true},
		{"Starts inside", "10:15", "10:30", true},
		{"Covers whole", "09:45", "10:45", true},
		{"Ends at start", "09:30", "10:00", false},
		{"Starts at end", "10:30", "11:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, a.Overlaps(tt.start, tt.end))
		})
	}

	legacy := &Appointment{StartTime: "10:00"}
	assert.True(t, legacy.Overlaps("10:00", "10:15"))
	assert.False(t, legacy.Overlaps("09:45", "10:15"))
}

func TestPartitionAppointments(t *testing.T) {
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.Local)
	yesterday := &Appointment{ID: "a", Date: date(t, "2025-05-09"), Status: StatusConfirmed}
	tomorrow := &Appointment{ID: "b", Date: date(t, "2025-05-11"), Status: StatusConfirmed}

	upcoming, past := PartitionAppointments([]*Appointment{yesterday, tomorrow}, now)

	require.Len(t, upcoming, 1)
	require.Len(t, past, 1)
	assert.Equal(t, "b", upcoming[0].ID)
	assert.Equal(t, "a", past[0].ID)
}

func TestSlotID_RoundTrip(t *testing.T) {
	d := date(t, "2025-05-01")
	id := SlotID(d, "10:00", "101")
	assert.Equal(t, "2025-05-01-10:00-101", id)

	ref, err := ParseSlotID(id)
	require.NoError(t, err)
	assert.True(t, ref.Date.Equal(d))
	assert.Equal(t, types.TimeString("10:00"), ref.StartTime)
	assert.Equal(t, "101", ref.ServiceID)
}

func TestParseSlotID_Invalid(t *testing.T) {
	for _, id := range []string{"", "2025-05-01", "2025-13-01-10:00-101", "2025-05-01-1000-101", "2025-05-01-10:00-"} {
		_, err := ParseSlotID(id)
		assert.ErrorIs(t, err, ErrInvalidSlotID, id)
	}
}

func TestGenerateGrid(t *testing.T) {
	t.Run("Default window", func(t *testing.T) {
		grid, err := GenerateGrid("09:00", "17:00", 30)
		require.NoError(t, err)
		require.Len(t, grid, 16)
		assert.Equal(t, types.TimeString("09:00"), grid[0])
		assert.Equal(t, types.TimeString("16:30"), grid[len(grid)-1])
	})

	t.Run("Partial slot at close is dropped", func(t *testing.T) {
		grid, err := GenerateGrid("09:00", "10:00", 45)
		require.NoError(t, err)
		assert.Equal(t, []types.TimeString{"09:00"}, grid)
	})

	t.Run("Non-positive granularity", func(t *testing.T) {
		_, err := GenerateGrid("09:00", "10:00", 0)
		assert.Error(t, err)
	})
}

func TestInstitution_QueuePrefix(t *testing.T) {
	general := &Service{ID: "101"}
	custom := &Service{ID: "102", QueuePrefix: "v"}
	hospital := &Institution{Type: InstitutionHospital, Services: []*Service{general, custom}}

	assert.Equal(t, "H", hospital.QueuePrefixFor(general))
	assert.Equal(t, "V", hospital.QueuePrefixFor(custom))
	assert.Equal(t, "G", (&Institution{Type: InstitutionGovernment}).QueuePrefixFor(general))
	assert.Equal(t, "T", (&Institution{Type: InstitutionTemple}).QueuePrefixFor(general))
	assert.Equal(t, "H007", FormatQueueNumber("H", 7))
	assert.Equal(t, "H123", FormatQueueNumber("H", 123))
}

func TestInstitutionFilter(t *testing.T) {
	hospital := InstitutionHospital
	inst := &Institution{Name: "City General Hospital", Address: "123 Health Avenue", Type: InstitutionHospital}

	assert.True(t, InstitutionFilter{}.Matches(inst))
	assert.True(t, InstitutionFilter{Search: "health"}.Matches(inst))
	assert.True(t, InstitutionFilter{Type: &hospital, Search: "GENERAL"}.Matches(inst))
	assert.False(t, InstitutionFilter{Search: "temple"}.Matches(inst))

	temple := InstitutionTemple
	assert.False(t, InstitutionFilter{Type: &temple}.Matches(inst))
}

func TestScheduleConfig_Granularity(t *testing.T) {
	svc := &Service{EstimatedTimeMinutes: 15}

	assert.Equal(t, 30, (&ScheduleConfig{SlotDurationMinutes: 30}).Granularity(svc))
	assert.Equal(t, 15, (&ScheduleConfig{SlotDurationMinutes: 30, SizeFromService: true}).Granularity(svc))
}
