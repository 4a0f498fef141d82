package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/database"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// DatasetRepository provides data access for dataset metadata.
type DatasetRepository interface {
	Create(ctx context.Context, d *models.Dataset) error
	GetByID(ctx context.Context, id string) (*models.Dataset, error)
	// Update replaces the whole metadata record of an existing dataset.
	Update(ctx context.Context, d *models.Dataset) error
	// Delete removes the metadata record. Activity and graph rows go
	// with it through the schema's ON DELETE CASCADE.
	Delete(ctx context.Context, id string) error
	// ListBriefs returns the lightweight listing projection, filtered
	// and sorted per the given filter values.
	ListBriefs(ctx context.Context, fv *models.FilterValues) ([]models.DatasetBrief, error)
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a new DatasetRepository.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

func (r *datasetRepository) Create(ctx context.Context, d *models.Dataset) error {
	query := `
		INSERT INTO dataset_info (
			id, name, description, creation_date, author, author_login,
			row_count, column_count, size_kb, path,
			last_version_number, last_modified_date, last_modified_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.Name,
		d.Description,
		d.CreationDate,
		d.Author,
		d.AuthorLogin,
		d.RowCount,
		d.ColumnCount,
		d.SizeKB,
		d.Path,
		d.LastVersionNumber,
		d.LastModifiedDate,
		d.LastModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepository) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	query := `
		SELECT id, name, description, creation_date, author, author_login,
		       row_count, column_count, size_kb, path,
		       last_version_number, last_modified_date, last_modified_by
		FROM dataset_info
		WHERE id = $1`

	var d models.Dataset
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.CreationDate,
		&d.Author,
		&d.AuthorLogin,
		&d.RowCount,
		&d.ColumnCount,
		&d.SizeKB,
		&d.Path,
		&d.LastVersionNumber,
		&d.LastModifiedDate,
		&d.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &d, nil
}

func (r *datasetRepository) Update(ctx context.Context, d *models.Dataset) error {
	query := `
		UPDATE dataset_info
		SET name = $2, description = $3, creation_date = $4,
		    author = $5, author_login = $6,
		    row_count = $7, column_count = $8, size_kb = $9, path = $10,
		    last_version_number = $11, last_modified_date = $12, last_modified_by = $13
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		d.ID,
		d.Name,
		d.Description,
		d.CreationDate,
		d.Author,
		d.AuthorLogin,
		d.RowCount,
		d.ColumnCount,
		d.SizeKB,
		d.Path,
		d.LastVersionNumber,
		d.LastModifiedDate,
		d.LastModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *datasetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM dataset_info WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *datasetRepository) ListBriefs(ctx context.Context, fv *models.FilterValues) ([]models.DatasetBrief, error) {
	query, args := buildBriefQuery(fv)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset briefs: %w", err)
	}
	defer rows.Close()

	briefs := []models.DatasetBrief{}
	for rows.Next() {
		var b models.DatasetBrief
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.SizeKB); err != nil {
			return nil, fmt.Errorf("failed to scan dataset brief: %w", err)
		}
		b.Type = models.BriefTypeCSV
		briefs = append(briefs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dataset briefs: %w", err)
	}
	return briefs, nil
}
