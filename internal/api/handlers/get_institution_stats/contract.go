package get_institution_stats

import (
	"context"

	"github.com/queueease/booking-service/internal/service/appointments/models"
)

type AppointmentService interface {
	Stats(ctx context.Context, req *models.StatsRequest) (*models.StatsResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
