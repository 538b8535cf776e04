package catalog

import (
	"context"

	"github.com/queueease/booking-service/internal/domain"
)

// CatalogRepository интерфейс репозитория справочника учреждений
type CatalogRepository interface {
	ListInstitutions(ctx context.Context, filter domain.InstitutionFilter) ([]*domain.Institution, error)
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
