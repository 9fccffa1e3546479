package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "CourtCast/pkg/cache"
)

// ServiceCache adapts a pkg/cache backend (Redis or layered) to the
// BytesCache API. Values are stored as strings: both backends pass strings
// through without JSON encoding.
type ServiceCache struct {
	svc pkgcache.Service
}

func NewServiceCache(svc pkgcache.Service) *ServiceCache {
	return &ServiceCache{svc: svc}
}

func (s *ServiceCache) GetBytes(key string) ([]byte, bool, error) {
	var v string
	err := s.svc.Get(context.Background(), key, &v)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *ServiceCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(context.Background(), key, string(value), ttl)
}
