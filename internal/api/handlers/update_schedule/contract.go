package update_schedule

import (
	"context"

	"github.com/queueease/booking-service/internal/service/schedule/models"
)

type ScheduleService interface {
	Upsert(ctx context.Context, req *models.UpsertScheduleRequest) (*models.ScheduleResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
