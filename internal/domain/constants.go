package domain

// Default schedule values, used when neither the institution nor the config file define one
const (
	DefaultOpenTime            = "09:00"
	DefaultCloseTime           = "17:00"
	DefaultSlotDurationMinutes = 30
	DefaultAdvanceBookingDays  = 0 // 0 = unlimited
)

// Business validation constants
const (
	MinSlotDurationMinutes      = 5
	MaxSlotDurationMinutes      = 480 // 8 hours
	MaxAdvanceBookingDays       = 365
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
	MaxQueueReasonLength        = 300
	MaxServiceMinutes           = 480
	MaxStatsPeriodDays          = 366
)

// Queue estimation defaults
const (
	DefaultHistorySize           = 20
	DefaultDelayThresholdPercent = 20
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// InactiveStatuses статусы, не занимающие слот
var InactiveStatuses = []AppointmentStatus{
	StatusCancelled,
}

// OpenStatuses статусы записей, ещё ожидающих обслуживания
var OpenStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
}
