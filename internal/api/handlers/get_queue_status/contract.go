package get_queue_status

import (
	"context"

	estimateQueue "github.com/queueease/booking-service/internal/usecase/estimate_queue"
)

type EstimateQueueUseCase interface {
	Execute(ctx context.Context, req *estimateQueue.Request) (*estimateQueue.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
