package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

func newActivityFixture(now time.Time) (*mockActivityRepo, ActivityService) {
	repo := newMockActivityRepo()
	svc := NewActivityService(repo, zap.NewNop()).(*activityService)
	svc.now = func() time.Time { return now }
	return repo, svc
}

func TestActivityServiceRegisterView(t *testing.T) {
	now := time.Date(2025, 4, 15, 23, 59, 0, 0, time.UTC)
	repo, svc := newActivityFixture(now)

	require.NoError(t, svc.RegisterView(context.Background(), "ds-1"))
	require.NoError(t, svc.RegisterView(context.Background(), "ds-1"))

	assert.EqualValues(t, 2, repo.views["ds-1|2025-04-15"])
	assert.Empty(t, repo.downloads)
}

func TestActivityServiceRegisterDownload(t *testing.T) {
	now := time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)
	repo, svc := newActivityFixture(now)

	require.NoError(t, svc.RegisterDownload(context.Background(), "ds-1"))

	assert.EqualValues(t, 1, repo.downloads["ds-1|2025-04-15"])
	assert.Empty(t, repo.views)
}

func TestActivityServiceGetSeries(t *testing.T) {
	repo, svc := newActivityFixture(time.Now())
	repo.series["ds-1"] = []models.ActivityDay{
		{DatasetID: "ds-1", Day: "2025-04-13", Views: 3, Downloads: 1},
		{DatasetID: "ds-1", Day: "2025-04-14", Views: 5, Downloads: 1},
		{DatasetID: "ds-1", Day: "2025-04-15", Views: 9, Downloads: 2},
	}

	series, err := svc.GetSeries(context.Background(), "ds-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-04-13", "2025-04-14", "2025-04-15"}, series.Dates)
	assert.Equal(t, []int64{3, 5, 9}, series.Views)
	assert.Equal(t, []int64{1, 1, 2}, series.Downloads)
}

func TestActivityServiceGetSeriesMissing(t *testing.T) {
	_, svc := newActivityFixture(time.Now())

	_, err := svc.GetSeries(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestActivityServiceRollForwardAll(t *testing.T) {
	now := time.Date(2025, 4, 16, 0, 0, 5, 0, time.UTC)
	repo, svc := newActivityFixture(now)
	repo.rollCount = 7

	rolled, err := svc.RollForwardAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 7, rolled)
	assert.Equal(t, []string{"2025-04-16"}, repo.rolled)
}
