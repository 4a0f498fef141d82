package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
	"github.com/moevm/nosql1h25-mldata/pkg/testhelpers"
)

func seedDataset(t *testing.T, tdb *testhelpers.TestDB, name string) string {
	t.Helper()
	d := newDataset(name)
	require.NoError(t, NewDatasetRepository(tdb.DB()).Create(context.Background(), d))
	return d.ID
}

func TestActivityRepositoryInitAndSeries(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "activity-init")

	require.NoError(t, repo.Init(ctx, id, "2025-04-15"))
	// Init is idempotent and never resets existing counts.
	require.NoError(t, repo.IncrementView(ctx, id, "2025-04-15"))
	require.NoError(t, repo.Init(ctx, id, "2025-04-15"))

	days, err := repo.GetSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-04-15", days[0].Day)
	assert.EqualValues(t, 1, days[0].Views)
	assert.EqualValues(t, 0, days[0].Downloads)
}

func TestActivityRepositorySeriesOrdered(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "activity-order")

	for _, day := range []string{"2025-04-15", "2025-04-13", "2025-04-14"} {
		require.NoError(t, repo.IncrementView(ctx, id, day))
	}

	days, err := repo.GetSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-04-13", days[0].Day)
	assert.Equal(t, "2025-04-14", days[1].Day)
	assert.Equal(t, "2025-04-15", days[2].Day)
}

func TestActivityRepositorySeriesMissing(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	_, err := repo.GetSeries(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestActivityRepositoryConcurrentIncrements(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "activity-concurrent")

	// Parallel increments from many goroutines must sum exactly.
	const workers = 20
	const perWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				errs <- repo.IncrementView(ctx, id, "2025-04-15")
				errs <- repo.IncrementDownload(ctx, id, "2025-04-15")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	days, err := repo.GetSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.EqualValues(t, workers*perWorker, days[0].Views)
	assert.EqualValues(t, workers*perWorker, days[0].Downloads)
}

func TestActivityRepositoryRollForward(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	first := seedDataset(t, tdb, "roll-a")
	second := seedDataset(t, tdb, "roll-b")

	// Latest entry wins: roll-a has two prior days.
	require.NoError(t, repo.Init(ctx, first, "2025-04-13"))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementView(ctx, first, "2025-04-14"))
	}
	require.NoError(t, repo.IncrementDownload(ctx, first, "2025-04-14"))
	require.NoError(t, repo.IncrementView(ctx, second, "2025-04-14"))

	rolled, err := repo.RollForward(ctx, "2025-04-15")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rolled)

	days, err := repo.GetSeries(ctx, first)
	require.NoError(t, err)
	require.Len(t, days, 3)
	today := days[2]
	assert.Equal(t, "2025-04-15", today.Day)
	assert.EqualValues(t, 3, today.Views)
	assert.EqualValues(t, 1, today.Downloads)
}

func TestActivityRepositoryRollForwardIdempotent(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "roll-idem")

	require.NoError(t, repo.IncrementView(ctx, id, "2025-04-14"))

	rolled, err := repo.RollForward(ctx, "2025-04-15")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rolled)

	// Counts written after the roll survive a repeated roll.
	require.NoError(t, repo.IncrementView(ctx, id, "2025-04-15"))

	rolled, err = repo.RollForward(ctx, "2025-04-15")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rolled)

	days, err := repo.GetSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.EqualValues(t, 2, days[1].Views)
}

func TestActivityRepositoryRollForwardSkipsIncrementedDay(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewActivityRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "roll-race")

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.IncrementView(ctx, id, "2025-04-14"))
	}
	// An increment lands on the new day before the roll runs: the roll
	// must not overwrite it.
	require.NoError(t, repo.IncrementView(ctx, id, "2025-04-15"))

	rolled, err := repo.RollForward(ctx, "2025-04-15")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rolled)

	days, err := repo.GetSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.EqualValues(t, 1, days[1].Views)
}

func TestGraphsRepositoryReplace(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	defer tdb.Cleanup(t)

	repo := NewGraphsRepository(tdb.DB())
	ctx := context.Background()
	id := seedDataset(t, tdb, "graphs-replace")

	first := []models.Graph{
		{Name: "0", Image: []byte("<svg>a</svg>")},
		{Name: "1", Image: []byte("<svg>b</svg>")},
	}
	require.NoError(t, repo.Replace(ctx, id, first))

	got, err := repo.GetByDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// A second replace swaps the whole set.
	second := []models.Graph{{Name: "0", Image: []byte("<svg>c</svg>")}}
	require.NoError(t, repo.Replace(ctx, id, second))

	got, err = repo.GetByDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
