package models

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Уровни, на которых найдена конфигурация
const (
	LevelService     = "service"
	LevelInstitution = "institution"
	LevelDefault     = "default"
)

// GetScheduleRequest запрос эффективной конфигурации
type GetScheduleRequest struct {
	UserID        string
	InstitutionID string
	ServiceID     *string // nil = конфигурация всего учреждения
}

// UpsertScheduleRequest запрос на сохранение конфигурации
type UpsertScheduleRequest struct {
	UserID              string  `json:"-"`
	InstitutionID       string  `json:"-"`
	ServiceID           *string `json:"serviceId,omitempty"` // nil = для всех услуг
	OpenTime            string  `json:"openTime"`
	CloseTime           string  `json:"closeTime"`
	SlotDurationMinutes int     `json:"slotDurationMinutes"`
	SizeFromService     bool    `json:"sizeFromService"`
	AdvanceBookingDays  int     `json:"advanceBookingDays"` // 0 = без ограничений
}

// UpdateSignalRequest запрос на обновление сигнала очереди
type UpdateSignalRequest struct {
	UserID                string
	ServiceID             string
	Reason                *string
	DelayThresholdMinutes *int
}

// ScheduleResponse конфигурация расписания
type ScheduleResponse struct {
	ID                  int64      `json:"id,omitempty"`
	InstitutionID       string     `json:"institutionId"`
	ServiceID           *string    `json:"serviceId,omitempty"`
	Level               string     `json:"level"`
	OpenTime            string     `json:"openTime"`
	CloseTime           string     `json:"closeTime"`
	SlotDurationMinutes int        `json:"slotDurationMinutes"`
	SizeFromService     bool       `json:"sizeFromService"`
	AdvanceBookingDays  int        `json:"advanceBookingDays"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// SignalResponse сигнал очереди
type SignalResponse struct {
	ServiceID             string    `json:"serviceId"`
	Reason                *string   `json:"reason,omitempty"`
	DelayThresholdMinutes *int      `json:"delayThresholdMinutes,omitempty"`
	UpdatedBy             string    `json:"updatedBy"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// ConfigLevel определяет уровень конфигурации
func ConfigLevel(c *domain.ScheduleConfig) string {
	switch {
	case c.IsDefault():
		return LevelDefault
	case c.IsInstitutionWide():
		return LevelInstitution
	default:
		return LevelService
	}
}

// FromDomainConfig конвертирует domain модель в DTO
func FromDomainConfig(c *domain.ScheduleConfig) *ScheduleResponse {
	if c == nil {
		return nil
	}

	resp := &ScheduleResponse{
		ID:                  c.ID,
		InstitutionID:       c.InstitutionID,
		ServiceID:           c.ServiceID,
		Level:               ConfigLevel(c),
		OpenTime:            c.OpenTime.String(),
		CloseTime:           c.CloseTime.String(),
		SlotDurationMinutes: c.SlotDurationMinutes,
		SizeFromService:     c.SizeFromService,
		AdvanceBookingDays:  c.AdvanceBookingDays,
	}
	if !c.UpdatedAt.IsZero() {
		updatedAt := c.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	return resp
}

// FromDomainSignal конвертирует domain модель в DTO
func FromDomainSignal(s *domain.QueueSignal) *SignalResponse {
	return &SignalResponse{
		ServiceID:             s.ServiceID,
		Reason:                s.Reason,
		DelayThresholdMinutes: s.DelayThresholdMinutes,
		UpdatedBy:             s.UpdatedBy,
		UpdatedAt:             s.UpdatedAt,
	}
}
