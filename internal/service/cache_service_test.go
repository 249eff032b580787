package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) DeleteByPattern(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newStubCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	svc.Set(ctx, "reports:summary:all", models.ReportSummary{Total: 1}, 0)
	var out models.ReportSummary
	assert.False(t, svc.Get(ctx, "reports:summary:all", &out))
	assert.Empty(t, repo.store)
	assert.NoError(t, svc.Invalidate(ctx, reportCachePattern))
	assert.Empty(t, repo.invalidated)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, nilSvc.Get(ctx, "k", &out))
	nilSvc.InvalidateReports(ctx)
}

func TestCacheServiceTracksHitRatio(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newStubCacheRepo(), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out models.ReportSummary
	assert.False(t, svc.Get(ctx, "reports:summary:all", &out))
	svc.Set(ctx, "reports:summary:all", models.ReportSummary{Total: 3}, 0)
	assert.True(t, svc.Get(ctx, "reports:summary:all", &out))
	assert.Equal(t, 3, out.Total)

	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.0001)
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, true)
	ctx := context.Background()

	var out models.ReportSummary
	assert.False(t, svc.Get(ctx, "reports:summary:all", &out))
	svc.Set(ctx, "reports:summary:all", out, 0)
	assert.Error(t, svc.Invalidate(ctx, reportCachePattern))
	svc.InvalidateReports(ctx)
}

func TestCacheServiceInvalidateReports(t *testing.T) {
	repo := newStubCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	svc.InvalidateReports(context.Background())
	assert.Equal(t, []string{"reports:*"}, repo.invalidated)
}
