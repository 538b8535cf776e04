package estimate_queue

import (
	"math"
	"sort"
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Estimate derives the queue status of a service from its appointments of the
// current day. history holds the latest recorded service durations, newest first.
// The function only reads its inputs.
func Estimate(
	service *domain.Service,
	today []*domain.Appointment,
	history []int,
	signal *domain.QueueSignal,
	thresholdPercent int,
	now time.Time,
) *domain.QueueStatus {
	queue := orderQueue(today)

	status := &domain.QueueStatus{
		ServiceID:   service.ID,
		Status:      domain.QueueOnTime,
		LastUpdated: now,
	}

	current := -1
	for i, a := range queue {
		if a.Status == domain.StatusConfirmed {
			current = i
			break
		}
	}

	if current >= 0 {
		status.CurrentToken = queue[current].QueueNumber
		for _, a := range queue[current+1:] {
			if a.Status != domain.StatusConfirmed {
				continue
			}
			if status.NextToken == "" {
				status.NextToken = a.QueueNumber
			}
			status.PeopleWaiting++
		}
	} else {
		// Nobody is being served: show the last finished token
		for i := len(queue) - 1; i >= 0; i-- {
			if queue[i].Status == domain.StatusCompleted {
				status.CurrentToken = queue[i].QueueNumber
				break
			}
		}
	}

	avg := averageServiceTime(history, service.EstimatedTimeMinutes)
	status.AverageServiceTime = int(math.Round(avg))
	// Wait is reported in whole minutes of the published average
	status.EstimatedWaitTime = status.PeopleWaiting * status.AverageServiceTime

	if signal != nil {
		status.Reason = signal.Reason
	}

	todayAvg, ok := todayAverage(queue)
	if !ok {
		return status
	}

	threshold := delayThreshold(avg, thresholdPercent, signal)
	diff := todayAvg - avg

	switch {
	case diff > threshold:
		status.Status = domain.QueueDelayed
		delay := int(math.Round(diff * float64(status.PeopleWaiting)))
		status.DelayTime = &delay
	case diff < -threshold:
		status.Status = domain.QueueAhead
		early := int(math.Round(-diff * float64(status.PeopleWaiting)))
		status.EarlyTime = &early
	}

	return status
}

// orderQueue returns non-cancelled appointments ordered by (start time, queue seq)
func orderQueue(appointments []*domain.Appointment) []*domain.Appointment {
	queue := make([]*domain.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.IsActive() {
			queue = append(queue, a)
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].StartTime != queue[j].StartTime {
			return queue[i].StartTime.IsBefore(queue[j].StartTime)
		}
		return queue[i].QueueSeq < queue[j].QueueSeq
	})

	return queue
}

func averageServiceTime(history []int, fallback int) float64 {
	sum, n := 0, 0
	for _, m := range history {
		if m > 0 {
			sum += m
			n++
		}
	}
	if n == 0 {
		return float64(fallback)
	}
	return float64(sum) / float64(n)
}

// todayAverage is the mean recorded duration of appointments completed today
func todayAverage(queue []*domain.Appointment) (float64, bool) {
	sum, n := 0, 0
	for _, a := range queue {
		if a.Status == domain.StatusCompleted && a.ServiceMinutes != nil && *a.ServiceMinutes > 0 {
			sum += *a.ServiceMinutes
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func delayThreshold(avg float64, percent int, signal *domain.QueueSignal) float64 {
	if signal != nil && signal.DelayThresholdMinutes != nil && *signal.DelayThresholdMinutes > 0 {
		return float64(*signal.DelayThresholdMinutes)
	}
	return math.Max(1, avg*float64(percent)/100)
}
