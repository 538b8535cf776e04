package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/queueease/booking-service/pkg/types"
)

// ErrInvalidSlotID is returned when a slot id can't be decomposed
var ErrInvalidSlotID = errors.New("domain: invalid time slot id")

// TimeSlot is a candidate window for a service on a date. Slots are
// generated on demand and never stored.
type TimeSlot struct {
	ID        string
	StartTime types.TimeString
	EndTime   types.TimeString
	Available bool
	ServiceID string
}

// DurationMinutes returns EndTime - StartTime
func (s TimeSlot) DurationMinutes() int {
	d, err := s.EndTime.Sub(s.StartTime)
	if err != nil {
		return 0
	}
	return d
}

// SlotID builds the deterministic id <YYYY-MM-DD>-<HH:MM>-<serviceId>
func SlotID(date time.Time, start types.TimeString, serviceID string) string {
	return fmt.Sprintf("%s-%s-%s", date.Format(DateFormat), start, serviceID)
}

// SlotRef is a decomposed slot id
type SlotRef struct {
	Date      time.Time
	StartTime types.TimeString
	ServiceID string
}

// ParseSlotID reverses SlotID
func ParseSlotID(id string) (SlotRef, error) {
	// 2025-05-01-10:00-101
	const dateLen = len(DateFormat)
	const timeLen = len(TimeFormat)

	if len(id) < dateLen+1+timeLen+2 || id[dateLen] != '-' || id[dateLen+1+timeLen] != '-' {
		return SlotRef{}, fmt.Errorf("%w: %q", ErrInvalidSlotID, id)
	}

	date, err := time.Parse(DateFormat, id[:dateLen])
	if err != nil {
		return SlotRef{}, fmt.Errorf("%w: bad date in %q", ErrInvalidSlotID, id)
	}

	start, err := types.NewTimeStringFromString(id[dateLen+1 : dateLen+1+timeLen])
	if err != nil {
		return SlotRef{}, fmt.Errorf("%w: bad time in %q", ErrInvalidSlotID, id)
	}

	serviceID := id[dateLen+1+timeLen+1:]
	if strings.TrimSpace(serviceID) == "" {
		return SlotRef{}, fmt.Errorf("%w: empty service in %q", ErrInvalidSlotID, id)
	}

	return SlotRef{Date: date, StartTime: start, ServiceID: serviceID}, nil
}

// GenerateGrid returns slot start times from open to close with a fixed step.
// A slot that would end after close is not emitted.
func GenerateGrid(open, close types.TimeString, granularity int) ([]types.TimeString, error) {
	if granularity <= 0 {
		return nil, fmt.Errorf("domain: granularity must be positive, got %d", granularity)
	}

	openMinutes, err := open.Minutes()
	if err != nil {
		return nil, err
	}
	closeMinutes, err := close.Minutes()
	if err != nil {
		return nil, err
	}

	if closeMinutes <= openMinutes {
		return []types.TimeString{}, nil
	}

	grid := make([]types.TimeString, 0, (closeMinutes-openMinutes)/granularity)
	for m := openMinutes; m+granularity <= closeMinutes; m += granularity {
		start, err := types.FromMinutes(m)
		if err != nil {
			return nil, err
		}
		grid = append(grid, start)
	}

	return grid, nil
}

// OnGrid reports whether start is one of the grid start times
func OnGrid(start types.TimeString, grid []types.TimeString) bool {
	for _, g := range grid {
		if g == start {
			return true
		}
	}
	return false
}
