package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fyp-portal-api/internal/dto"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string]interface{}
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string]interface{}{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *dto.DefenseRunSummary:
		*d = v.(dto.DefenseRunSummary)
	case *string:
		*d = v.(string)
	}
	return nil
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if p, ok := value.(*dto.DefenseRunSummary); ok {
		value = *p
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestCacheServiceHitMissAndDefaultTTL(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), 0, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, 10*time.Minute, repo.ttls["k"])

	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)
}

func TestCacheServiceDisabledAndErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	disabled := NewCacheService(repo, nil, time.Minute, nil, false)
	require.NoError(t, disabled.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.values)

	repo.failGet = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}
