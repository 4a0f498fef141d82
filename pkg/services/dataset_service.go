package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/charts"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
	"github.com/moevm/nosql1h25-mldata/pkg/repositories"
	"github.com/moevm/nosql1h25-mldata/pkg/storage"
)

// UpdateResult is what an edit returns: the new metadata plus a
// warning when the submitted file content was unusable and the stored
// file was kept instead.
type UpdateResult struct {
	Dataset *models.Dataset
	Warning string
}

// PreviewLimits bound the preview projection.
type PreviewLimits struct {
	MaxRows    int
	MaxColumns int
}

// DatasetService is the ingestion pipeline: it parses uploads,
// persists metadata, writes the raw file and keeps the chart set and
// activity counters consistent with it.
type DatasetService interface {
	// Create ingests a new upload. The CSV content is required and
	// must parse.
	Create(ctx context.Context, form *models.DatasetFormValues, actor models.Actor) (*models.Dataset, error)
	// Update edits an existing dataset. Empty or unparseable content
	// keeps the stored file; version is bumped by one either way.
	Update(ctx context.Context, id string, form *models.DatasetFormValues, actor models.Actor) (*UpdateResult, error)
	// Delete removes the metadata record (activity and graphs cascade
	// with it) and always attempts to remove the on-disk file, even
	// when the metadata row was already gone.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Dataset, error)
	ListBriefs(ctx context.Context, fv *models.FilterValues) ([]models.DatasetBrief, error)
	// Preview returns a bounded head of the stored file.
	Preview(ctx context.Context, id string) (*models.Preview, error)
	// Download returns the stored raw content plus a download filename.
	Download(ctx context.Context, id string) ([]byte, string, error)
	// Graphs returns the dataset's rendered chart set.
	Graphs(ctx context.Context, id string) ([]models.Graph, error)
}

type datasetService struct {
	datasets  repositories.DatasetRepository
	activity  repositories.ActivityRepository
	graphs    repositories.GraphsRepository
	files     *storage.FileStore
	generator *charts.Generator
	preview   PreviewLimits
	logger    *zap.Logger
	now       func() time.Time
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(
	datasets repositories.DatasetRepository,
	activity repositories.ActivityRepository,
	graphs repositories.GraphsRepository,
	files *storage.FileStore,
	generator *charts.Generator,
	preview PreviewLimits,
	logger *zap.Logger,
) DatasetService {
	return &datasetService{
		datasets:  datasets,
		activity:  activity,
		graphs:    graphs,
		files:     files,
		generator: generator,
		preview:   preview,
		logger:    logger,
		now:       time.Now,
	}
}

var _ DatasetService = (*datasetService)(nil)

// sizeKB is the stored size of raw content: kilobytes rounded to two
// decimals.
func sizeKB(data []byte) float64 {
	return math.Round(float64(len(data))/1024*100) / 100
}

// parseShape derives the row and column counts of CSV content.
func parseShape(data []byte) (rows, cols int64, err error) {
	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return 0, 0, fmt.Errorf("%w: %v", apperrors.ErrInvalidCSV, df.Err)
	}
	return int64(df.Nrow()), int64(df.Ncol()), nil
}

func (s *datasetService) Create(ctx context.Context, form *models.DatasetFormValues, actor models.Actor) (*models.Dataset, error) {
	data := []byte(form.Data)
	if len(data) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	rows, cols, err := parseShape(data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &models.Dataset{
		ID:                uuid.NewString(),
		Name:              form.Name,
		Description:       form.Description,
		CreationDate:      now,
		Author:            actor.Name,
		AuthorLogin:       actor.Login,
		RowCount:          rows,
		ColumnCount:       cols,
		SizeKB:            sizeKB(data),
		LastVersionNumber: 1,
		LastModifiedDate:  now,
		LastModifiedBy:    actor.Name,
	}

	// Exclusive create: an existing file at the target path means an
	// identifier collision and must fail loudly.
	path, err := s.files.Create(d.ID, data)
	if err != nil {
		return nil, err
	}
	d.Path = path

	if err := s.datasets.Create(ctx, d); err != nil {
		if rmErr := s.files.Remove(d.ID); rmErr != nil {
			s.logger.Warn("Failed to remove file after create rollback",
				zap.String("dataset_id", d.ID),
				zap.Error(rmErr))
		}
		return nil, err
	}

	if err := s.activity.Init(ctx, d.ID, models.Today(now)); err != nil {
		s.logger.Error("Failed to init activity counters",
			zap.String("dataset_id", d.ID),
			zap.Error(err))
	}

	s.regenerateGraphs(ctx, d.ID, data)

	s.logger.Info("Dataset created",
		zap.String("dataset_id", d.ID),
		zap.Int64("rows", rows),
		zap.Int64("columns", cols),
		zap.Float64("size_kb", d.SizeKB))

	return d, nil
}

func (s *datasetService) Update(ctx context.Context, id string, form *models.DatasetFormValues, actor models.Actor) (*UpdateResult, error) {
	prior, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *prior
	updated.Name = form.Name
	updated.Description = form.Description
	updated.LastVersionNumber = prior.LastVersionNumber + 1
	updated.LastModifiedDate = s.now()
	updated.LastModifiedBy = actor.Name

	var warning string
	data := []byte(form.Data)
	hasNewContent := len(data) > 0
	if hasNewContent {
		rows, cols, err := parseShape(data)
		if err != nil {
			// Unusable content on the edit path keeps the stored file
			// and only warns the caller.
			warning = "uploaded file could not be parsed as CSV; the stored file was kept"
			hasNewContent = false
		} else {
			updated.RowCount = rows
			updated.ColumnCount = cols
			updated.SizeKB = sizeKB(data)
		}
	}

	if err := s.datasets.Update(ctx, &updated); err != nil {
		return nil, err
	}

	if hasNewContent {
		if _, err := s.files.Write(id, data); err != nil {
			return nil, err
		}
		s.regenerateGraphs(ctx, id, data)
	}

	s.logger.Info("Dataset updated",
		zap.String("dataset_id", id),
		zap.Int("version", updated.LastVersionNumber),
		zap.Bool("new_content", hasNewContent))

	return &UpdateResult{Dataset: &updated, Warning: warning}, nil
}

func (s *datasetService) Delete(ctx context.Context, id string) error {
	// Metadata delete cascades to activity and graphs. The file is
	// removed regardless of whether the metadata row still existed,
	// so a half-deleted dataset cannot strand its file on disk.
	delErr := s.datasets.Delete(ctx, id)
	if delErr != nil && !errors.Is(delErr, apperrors.ErrNotFound) {
		return delErr
	}

	if err := s.files.Remove(id); err != nil {
		s.logger.Warn("Failed to remove dataset file",
			zap.String("dataset_id", id),
			zap.Error(err))
	}

	if delErr == nil {
		s.logger.Info("Dataset deleted", zap.String("dataset_id", id))
	}
	return delErr
}

func (s *datasetService) Get(ctx context.Context, id string) (*models.Dataset, error) {
	return s.datasets.GetByID(ctx, id)
}

func (s *datasetService) ListBriefs(ctx context.Context, fv *models.FilterValues) ([]models.DatasetBrief, error) {
	return s.datasets.ListBriefs(ctx, fv)
}

func (s *datasetService) Preview(ctx context.Context, id string) (*models.Preview, error) {
	if _, err := s.datasets.GetByID(ctx, id); err != nil {
		return nil, err
	}

	data, err := s.files.Read(id)
	if err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCSV, df.Err)
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	cols := df.Ncol()
	if cols > s.preview.MaxColumns {
		cols = s.preview.MaxColumns
	}
	rows := df.Nrow()
	if rows > s.preview.MaxRows {
		rows = s.preview.MaxRows
	}

	p := &models.Preview{
		Columns:   records[0][:cols],
		Rows:      make([][]string, 0, rows),
		TotalRows: int64(df.Nrow()),
		TotalCols: int64(df.Ncol()),
	}
	for r := 1; r <= rows; r++ {
		p.Rows = append(p.Rows, records[r][:cols])
	}
	return p, nil
}

func (s *datasetService) Download(ctx context.Context, id string) ([]byte, string, error) {
	d, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.files.Read(id)
	if err != nil {
		return nil, "", err
	}
	return data, d.Name + ".csv", nil
}

func (s *datasetService) Graphs(ctx context.Context, id string) ([]models.Graph, error) {
	return s.graphs.GetByDataset(ctx, id)
}

// regenerateGraphs rebuilds the chart set for new file content. Chart
// generation is best effort: failures are logged and the dataset
// stays usable without charts.
func (s *datasetService) regenerateGraphs(ctx context.Context, id string, data []byte) {
	graphs, err := s.generator.Generate(data)
	if err != nil {
		s.logger.Warn("Chart generation failed",
			zap.String("dataset_id", id),
			zap.Error(err))
		return
	}

	if err := s.graphs.Replace(ctx, id, graphs); err != nil {
		s.logger.Error("Failed to store charts",
			zap.String("dataset_id", id),
			zap.Error(err))
		return
	}

	s.logger.Info("Charts generated",
		zap.String("dataset_id", id),
		zap.Int("count", len(graphs)))
}
