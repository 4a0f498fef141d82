package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/models"
	"github.com/moevm/nosql1h25-mldata/pkg/repositories"
)

// ActivityService tracks per-day view/download counters and runs the
// daily roll-forward.
type ActivityService interface {
	// RegisterView bumps today's view counter for a dataset.
	RegisterView(ctx context.Context, datasetID string) error
	// RegisterDownload bumps today's download counter for a dataset.
	RegisterDownload(ctx context.Context, datasetID string) error
	// GetSeries returns the dataset's full activity history as
	// parallel arrays sorted by date ascending.
	GetSeries(ctx context.Context, datasetID string) (*models.ActivitySeries, error)
	// RollForwardAll seeds today's entry for every dataset from its
	// latest prior entry. Safe to invoke repeatedly within a day.
	RollForwardAll(ctx context.Context) (int64, error)
}

type activityService struct {
	activity repositories.ActivityRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewActivityService creates a new ActivityService.
func NewActivityService(activity repositories.ActivityRepository, logger *zap.Logger) ActivityService {
	return &activityService{
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

var _ ActivityService = (*activityService)(nil)

func (s *activityService) RegisterView(ctx context.Context, datasetID string) error {
	return s.activity.IncrementView(ctx, datasetID, models.Today(s.now()))
}

func (s *activityService) RegisterDownload(ctx context.Context, datasetID string) error {
	return s.activity.IncrementDownload(ctx, datasetID, models.Today(s.now()))
}

func (s *activityService) GetSeries(ctx context.Context, datasetID string) (*models.ActivitySeries, error) {
	days, err := s.activity.GetSeries(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	series := models.NewActivitySeries(days)
	return &series, nil
}

func (s *activityService) RollForwardAll(ctx context.Context) (int64, error) {
	today := models.Today(s.now())
	rolled, err := s.activity.RollForward(ctx, today)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Activity rolled forward",
		zap.String("day", today),
		zap.Int64("datasets", rolled))
	return rolled, nil
}
