package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"openpayflow/internal/domains/merchant/model"
	"openpayflow/internal/domains/merchant/repository"
	"openpayflow/pkg/cache"
	"openpayflow/pkg/logger"
)

// merchantCacheTTL bounds how long a revoked key can keep authenticating.
const merchantCacheTTL = time.Hour

type merchantService struct {
	repo  repository.MerchantRepoInterface
	cache cache.Cache
}

func NewMerchantService(repo repository.MerchantRepoInterface, c cache.Cache) MerchantService {
	return &merchantService{repo: repo, cache: c}
}

// Authenticate hashes the presented key and resolves it through a
// read-through cache keyed on the hash. The cache is advisory: a miss or a
// cache failure always falls back to the store.
func (s *merchantService) Authenticate(ctx context.Context, apiKey string) (*model.Merchant, error) {
	if apiKey == "" {
		return nil, model.ErrInvalidAPIKey
	}

	hash := model.HashAPIKey(apiKey)
	cacheKey := fmt.Sprintf("merchant:%s", hash)

	var cached model.Merchant
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		logger.Warn("Merchant cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if found {
		return &cached, nil
	}

	merchant, err := s.repo.GetByAPIKeyHash(ctx, hash)
	if err != nil {
		if errors.Is(err, model.ErrMerchantNotFound) {
			return nil, model.ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to authenticate merchant: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, merchant, merchantCacheTTL); err != nil {
		logger.Warn("Merchant cache write failed", map[string]interface{}{"error": err.Error()})
	}

	return merchant, nil
}
