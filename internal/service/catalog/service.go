package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/queueease/booking-service/internal/domain"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/internal/service/catalog/models"
)

const maxSearchLength = 100

// Service сервис каталога учреждений и услуг
type Service struct {
	repo   CatalogRepository
	logger Logger
}

// NewService создает новый экземпляр сервиса каталога
func NewService(repo CatalogRepository, logger Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List возвращает учреждения с фильтром по типу и поиском по названию и адресу
func (s *Service) List(ctx context.Context, req *models.ListInstitutionsRequest) (*models.InstitutionListResponse, error) {
	s.logger.Info("List: type=%v, search=%q", req.Type, req.Search)

	search := strings.TrimSpace(req.Search)
	if len(search) > maxSearchLength {
		return nil, fmt.Errorf("%w: search query is too long", ErrInvalidInput)
	}

	filter := domain.InstitutionFilter{Search: search}
	if req.Type != nil && *req.Type != "" {
		t := domain.InstitutionType(*req.Type)
		if !t.IsValid() {
			s.logger.Warn("List: invalid institution type=%s", *req.Type)
			return nil, fmt.Errorf("%w: unknown institution type %q", ErrInvalidInput, *req.Type)
		}
		filter.Type = &t
	}

	institutions, err := s.repo.ListInstitutions(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: found %d institutions", len(institutions))
	return models.FromDomainInstitutionList(institutions), nil
}

// Get возвращает учреждение вместе с услугами
func (s *Service) Get(ctx context.Context, id string) (*models.InstitutionResponse, error) {
	s.logger.Info("Get: fetching institution id=%s", id)

	institution, err := s.repo.GetInstitution(ctx, id)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrInstitutionNotFound) {
			s.logger.Warn("Get: institution id=%s not found", id)
			return nil, ErrInstitutionNotFound
		}
		s.logger.Error("Get: repository error for institution id=%s: %v", id, err)
		return nil, fmt.Errorf("%w: Get - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainInstitution(institution), nil
}

// GetService возвращает услугу по ID
func (s *Service) GetService(ctx context.Context, id string) (*models.ServiceResponse, error) {
	service, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			s.logger.Warn("GetService: service id=%s not found", id)
			return nil, ErrServiceNotFound
		}
		s.logger.Error("GetService: repository error for service id=%s: %v", id, err)
		return nil, fmt.Errorf("%w: GetService - repository error: %v", ErrInternal, err)
	}

	resp := models.FromDomainService(service)
	return &resp, nil
}
