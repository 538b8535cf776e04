package estimate_queue

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Options параметры оценки очереди
type Options struct {
	HistorySize           int           // сколько последних длительностей усреднять
	DelayThresholdPercent int           // порог задержки в процентах от среднего
	SnapshotTTL           time.Duration // сколько живёт снимок (интервал обновления)
}

// Request модель запроса состояния очереди
type Request struct {
	ServiceID string
}

// Response состояние очереди услуги на текущий день
type Response struct {
	ServiceID          string
	CurrentToken       string
	NextToken          string
	EstimatedWaitTime  int
	PeopleWaiting      int
	Status             string
	Reason             *string
	AverageServiceTime int
	DelayTime          *int
	EarlyTime          *int
	LastUpdated        time.Time
}

func toResponse(s *domain.QueueStatus) *Response {
	return &Response{
		ServiceID:          s.ServiceID,
		CurrentToken:       s.CurrentToken,
		NextToken:          s.NextToken,
		EstimatedWaitTime:  s.EstimatedWaitTime,
		PeopleWaiting:      s.PeopleWaiting,
		Status:             string(s.Status),
		Reason:             s.Reason,
		AverageServiceTime: s.AverageServiceTime,
		DelayTime:          s.DelayTime,
		EarlyTime:          s.EarlyTime,
		LastUpdated:        s.LastUpdated,
	}
}
