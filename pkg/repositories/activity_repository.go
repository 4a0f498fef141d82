package repositories

import (
	"context"
	"fmt"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/database"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// ActivityRepository maintains the per-dataset per-day view/download
// counters.
type ActivityRepository interface {
	// Init inserts a zeroed entry for the given day at dataset
	// creation time.
	Init(ctx context.Context, datasetID string, day string) error
	// IncrementView atomically bumps the day's view counter,
	// creating the day's entry if it does not exist yet.
	IncrementView(ctx context.Context, datasetID string, day string) error
	// IncrementDownload atomically bumps the day's download counter,
	// creating the day's entry if it does not exist yet.
	IncrementDownload(ctx context.Context, datasetID string, day string) error
	// GetSeries returns all day entries for a dataset sorted by day
	// ascending.
	GetSeries(ctx context.Context, datasetID string) ([]models.ActivityDay, error)
	// RollForward seeds the given day's entry from each dataset's
	// latest prior entry. Datasets that already have an entry for the
	// day are left untouched, so the operation is idempotent and
	// never overwrites counts written by concurrent increments.
	RollForward(ctx context.Context, day string) (int64, error)
}

type activityRepository struct {
	db *database.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *database.DB) ActivityRepository {
	return &activityRepository{db: db}
}

var _ ActivityRepository = (*activityRepository)(nil)

func (r *activityRepository) Init(ctx context.Context, datasetID string, day string) error {
	query := `
		INSERT INTO dataset_activity (dataset_id, day, views, downloads)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (dataset_id, day) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, datasetID, day); err != nil {
		return fmt.Errorf("failed to init activity: %w", err)
	}
	return nil
}

func (r *activityRepository) IncrementView(ctx context.Context, datasetID string, day string) error {
	return r.increment(ctx, datasetID, day, "views")
}

func (r *activityRepository) IncrementDownload(ctx context.Context, datasetID string, day string) error {
	return r.increment(ctx, datasetID, day, "downloads")
}

// increment is an atomic upsert: the row-level conflict update makes
// concurrent increments from parallel requests sum exactly.
func (r *activityRepository) increment(ctx context.Context, datasetID, day, counter string) error {
	query := fmt.Sprintf(`
		INSERT INTO dataset_activity (dataset_id, day, %[1]s)
		VALUES ($1, $2, 1)
		ON CONFLICT (dataset_id, day)
		DO UPDATE SET %[1]s = dataset_activity.%[1]s + 1`, counter)

	if _, err := r.db.Exec(ctx, query, datasetID, day); err != nil {
		return fmt.Errorf("failed to increment %s: %w", counter, err)
	}
	return nil
}

func (r *activityRepository) GetSeries(ctx context.Context, datasetID string) ([]models.ActivityDay, error) {
	query := `
		SELECT dataset_id, to_char(day, 'YYYY-MM-DD'), views, downloads
		FROM dataset_activity
		WHERE dataset_id = $1
		ORDER BY day`

	rows, err := r.db.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var days []models.ActivityDay
	for rows.Next() {
		var d models.ActivityDay
		if err := rows.Scan(&d.DatasetID, &d.Day, &d.Views, &d.Downloads); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	if len(days) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return days, nil
}

func (r *activityRepository) RollForward(ctx context.Context, day string) (int64, error) {
	// Carry each dataset's latest existing counts forward verbatim.
	// DO NOTHING keeps the roll a strict no-op once the target day
	// exists, whether it was created by a previous roll or by an
	// increment that got there first.
	query := `
		INSERT INTO dataset_activity (dataset_id, day, views, downloads)
		SELECT DISTINCT ON (a.dataset_id) a.dataset_id, $1::date, a.views, a.downloads
		FROM dataset_activity a
		WHERE a.day < $1::date
		ORDER BY a.dataset_id, a.day DESC
		ON CONFLICT (dataset_id, day) DO NOTHING`

	result, err := r.db.Exec(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("failed to roll activity forward: %w", err)
	}
	return result.RowsAffected(), nil
}
