package get_queue_status

import (
	"time"

	estimateQueue "github.com/queueease/booking-service/internal/usecase/estimate_queue"
)

// QueueStatusResponse HTTP response model
type QueueStatusResponse struct {
	ServiceID          string    `json:"serviceId"`
	CurrentToken       string    `json:"currentToken"`
	NextToken          string    `json:"nextToken"`
	EstimatedWaitTime  int       `json:"estimatedWaitTime"` // минуты
	PeopleWaiting      int       `json:"peopleWaiting"`
	Status             string    `json:"status"`
	Reason             *string   `json:"reason,omitempty"`
	AverageServiceTime int       `json:"averageServiceTime"`
	DelayTime          *int      `json:"delayTime,omitempty"`
	EarlyTime          *int      `json:"earlyTime,omitempty"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// FromUseCaseResponse converts use case response to HTTP response
func FromUseCaseResponse(resp *estimateQueue.Response) *QueueStatusResponse {
	return &QueueStatusResponse{
		ServiceID:          resp.ServiceID,
		CurrentToken:       resp.CurrentToken,
		NextToken:          resp.NextToken,
		EstimatedWaitTime:  resp.EstimatedWaitTime,
		PeopleWaiting:      resp.PeopleWaiting,
		Status:             resp.Status,
		Reason:             resp.Reason,
		AverageServiceTime: resp.AverageServiceTime,
		DelayTime:          resp.DelayTime,
		EarlyTime:          resp.EarlyTime,
		LastUpdated:        resp.LastUpdated,
	}
}
