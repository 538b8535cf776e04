package list_institutions

import (
	"context"

	"github.com/queueease/booking-service/internal/service/catalog/models"
)

type CatalogService interface {
	List(ctx context.Context, req *models.ListInstitutionsRequest) (*models.InstitutionListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
