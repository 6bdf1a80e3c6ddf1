package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	appErrors "github.com/kitcycle/kitcycle-api/pkg/errors"
)

type cacheStoreStub struct {
	values  map[string]string
	deleted []string
}

func (s *cacheStoreStub) Get(_ context.Context, key string, dest interface{}) error {
	value, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*string) = value
	return nil
}

func (s *cacheStoreStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *cacheStoreStub) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	store := &cacheStoreStub{values: map[string]string{}}
	metrics := NewMetricsService()
	svc := NewCacheService(store, metrics, nil)

	var out string
	err := svc.Get(context.Background(), "k", &out)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, svc.Get(context.Background(), "k", &out))
	require.Equal(t, "v", out)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheTotal.WithLabelValues("miss")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheTotal.WithLabelValues("hit")))
}

func TestCacheServiceDeleteByPattern(t *testing.T) {
	store := &cacheStoreStub{values: map[string]string{}}
	svc := NewCacheService(store, nil, nil)

	require.NoError(t, svc.DeleteByPattern(context.Background(), "directory:*"))
	require.Equal(t, []string{"directory:*"}, store.deleted)
}
