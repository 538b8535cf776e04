package domain

import (
	"time"

	"github.com/queueease/booking-service/pkg/types"
)

// ScheduleConfig defines the bookable window of an institution or one of its services.
// Resolution order:
// 1. Service-specific (institution_id, service_id)
// 2. Institution-wide (institution_id, NULL)
// 3. Global default from the service configuration file
type ScheduleConfig struct {
	ID                  int64
	InstitutionID       string
	ServiceID           *string // NULL = config for all services
	OpenTime            types.TimeString
	CloseTime           types.TimeString
	SlotDurationMinutes int
	SizeFromService     bool // granule = service.EstimatedTimeMinutes
	AdvanceBookingDays  int  // 0 = unlimited
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsInstitutionWide returns true if the config applies to every service of the institution
func (c *ScheduleConfig) IsInstitutionWide() bool {
	return c.ServiceID == nil
}

// HasAdvanceBookingLimit returns true if there's a limit on how far in advance bookings can be made
func (c *ScheduleConfig) HasAdvanceBookingLimit() bool {
	return c.AdvanceBookingDays > 0
}

// Granularity returns the slot length for service s
func (c *ScheduleConfig) Granularity(s *Service) int {
	if c.SizeFromService && s != nil && s.EstimatedTimeMinutes > 0 {
		return s.EstimatedTimeMinutes
	}
	return c.SlotDurationMinutes
}

// IsDefault reports whether the config was not loaded from storage
func (c *ScheduleConfig) IsDefault() bool {
	return c.ID == 0
}
