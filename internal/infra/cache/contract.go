package cache

import (
	"context"

	"github.com/queueease/booking-service/internal/domain"
)

// CatalogRepository источник справочника, который кэшируется
type CatalogRepository interface {
	ListInstitutions(ctx context.Context, filter domain.InstitutionFilter) ([]*domain.Institution, error)
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListServiceIDs(ctx context.Context) ([]string, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}
