//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stratus/internal/tenancy/cache"
	id "stratus/pkg/domain"
	"stratus/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
	ctx   context.Context
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	tenantID := id.NewTenantID()
	features := map[string]string{"MaxUserCount": "50", "ChatFeature": "true"}

	_, ok, err := s.cache.Get(s.ctx, tenantID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.cache.Set(s.ctx, tenantID, features))

	cached, ok, err := s.cache.Get(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(features, cached)
}

func (s *RedisCacheSuite) TestInvalidate() {
	tenantID := id.NewTenantID()
	s.Require().NoError(s.cache.Set(s.ctx, tenantID, map[string]string{"X": "1"}))
	s.Require().NoError(s.cache.Invalidate(s.ctx, tenantID))

	_, ok, err := s.cache.Get(s.ctx, tenantID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisCacheSuite) TestEntriesArePerTenant() {
	a, b := id.NewTenantID(), id.NewTenantID()
	s.Require().NoError(s.cache.Set(s.ctx, a, map[string]string{"X": "a"}))
	s.Require().NoError(s.cache.Set(s.ctx, b, map[string]string{"X": "b"}))

	s.Require().NoError(s.cache.Invalidate(s.ctx, a))

	cached, ok, err := s.cache.Get(s.ctx, b)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("b", cached["X"])
}
