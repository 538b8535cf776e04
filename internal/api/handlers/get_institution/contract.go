package get_institution

import (
	"context"

	"github.com/queueease/booking-service/internal/service/catalog/models"
)

type CatalogService interface {
	Get(ctx context.Context, id string) (*models.InstitutionResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
