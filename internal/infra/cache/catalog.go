package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/queueease/booking-service/internal/domain"
)

// CatalogCache read-through LRU поверх репозитория справочника.
// Справочник меняется редко и вне сервиса, поэтому записи живут ttl.
type CatalogCache struct {
	repo         CatalogRepository
	institutions *expirable.LRU[string, *domain.Institution]
	services     *expirable.LRU[string, *domain.Service]
	logger       Logger
}

// NewCatalogCache создает кэш на size записей каждого вида
func NewCatalogCache(repo CatalogRepository, size int, ttl time.Duration, logger Logger) *CatalogCache {
	return &CatalogCache{
		repo:         repo,
		institutions: expirable.NewLRU[string, *domain.Institution](size, nil, ttl),
		services:     expirable.NewLRU[string, *domain.Service](size, nil, ttl),
		logger:       logger,
	}
}

// ListInstitutions не кэшируется: фильтры дают слишком много ключей
func (c *CatalogCache) ListInstitutions(ctx context.Context, filter domain.InstitutionFilter) ([]*domain.Institution, error) {
	institutions, err := c.repo.ListInstitutions(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, inst := range institutions {
		c.institutions.Add(inst.ID, inst)
	}
	return institutions, nil
}

func (c *CatalogCache) GetInstitution(ctx context.Context, id string) (*domain.Institution, error) {
	if inst, ok := c.institutions.Get(id); ok {
		c.logger.Debug("catalog cache hit: institution=%s", id)
		return inst, nil
	}

	inst, err := c.repo.GetInstitution(ctx, id)
	if err != nil {
		return nil, err
	}

	c.institutions.Add(id, inst)
	return inst, nil
}

func (c *CatalogCache) GetService(ctx context.Context, id string) (*domain.Service, error) {
	if s, ok := c.services.Get(id); ok {
		c.logger.Debug("catalog cache hit: service=%s", id)
		return s, nil
	}

	s, err := c.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	c.services.Add(id, s)
	return s, nil
}

func (c *CatalogCache) ListServiceIDs(ctx context.Context) ([]string, error) {
	return c.repo.ListServiceIDs(ctx)
}

// Purge сбрасывает кэш
func (c *CatalogCache) Purge() {
	c.institutions.Purge()
	c.services.Purge()
}
