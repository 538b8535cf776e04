package domain

import "time"

// QueueState classifies how a queue is running against its average pace
type QueueState string

const (
	QueueOnTime  QueueState = "on-time"
	QueueDelayed QueueState = "delayed"
	QueueAhead   QueueState = "ahead"
)

// QueueStatus is a derived, never persisted, snapshot of a service queue for today
type QueueStatus struct {
	ServiceID          string
	CurrentToken       string
	NextToken          string
	EstimatedWaitTime  int // minutes
	PeopleWaiting      int
	Status             QueueState
	Reason             *string
	AverageServiceTime int // minutes
	DelayTime          *int
	EarlyTime          *int
	LastUpdated        time.Time
}

// IsFresh reports whether the snapshot is younger than ttl at now
func (q *QueueStatus) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(q.LastUpdated) < ttl
}

// QueueSignal is staff input attached to a service queue
type QueueSignal struct {
	ServiceID             string
	Reason                *string
	DelayThresholdMinutes *int // overrides the derived threshold
	UpdatedBy             string
	UpdatedAt             time.Time
}

// InstitutionStats aggregates bookings of an institution over a period
type InstitutionStats struct {
	InstitutionID string
	From          time.Time
	To            time.Time
	TotalBookings int
	ActiveTokens  int // confirmed or pending today
	Cancelled     int
	Completed     int
	Daily         []DailyBookings
}

// DailyBookings is the number of non-cancelled bookings per date
type DailyBookings struct {
	Date  time.Time
	Count int
}
