package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/marketplace/internal/domain"
)

// cachedCatalogService decorates CatalogService with a redis read-through
// cache for single-product lookups. Writes invalidate.
type cachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedCatalogService(next CatalogService, redisClient *redis.Client, ttl time.Duration) CatalogService {
	return &cachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *cachedCatalogService) Create(ctx context.Context, principal domain.Principal, product *domain.Product) (int64, error) {
	return s.next.Create(ctx, principal, product)
}

func (s *cachedCatalogService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedCatalogService) List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error) {
	return s.next.List(ctx, limit, offset, search, vendorID)
}

func (s *cachedCatalogService) Update(ctx context.Context, principal domain.Principal, id int64, input *domain.UpdateProductInput) error {
	if err := s.next.Update(ctx, principal, id, input); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productKey(id))
	return nil
}

func (s *cachedCatalogService) SetStatus(ctx context.Context, principal domain.Principal, id int64, status domain.ProductStatus) error {
	if err := s.next.SetStatus(ctx, principal, id, status); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productKey(id))
	return nil
}

func (s *cachedCatalogService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	if err := s.next.Delete(ctx, principal, id); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productKey(id))
	return nil
}
