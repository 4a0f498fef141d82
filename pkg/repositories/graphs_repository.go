package repositories

import (
	"context"
	"fmt"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/database"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// GraphsRepository stores the rendered chart set of each dataset.
type GraphsRepository interface {
	// Replace swaps the dataset's whole chart set in one transaction.
	// Called every time the ingestion pipeline (re)processes a file.
	Replace(ctx context.Context, datasetID string, graphs []models.Graph) error
	// GetByDataset returns the chart set in source-column order.
	GetByDataset(ctx context.Context, datasetID string) ([]models.Graph, error)
}

type graphsRepository struct {
	db *database.DB
}

// NewGraphsRepository creates a new GraphsRepository.
func NewGraphsRepository(db *database.DB) GraphsRepository {
	return &graphsRepository{db: db}
}

var _ GraphsRepository = (*graphsRepository)(nil)

func (r *graphsRepository) Replace(ctx context.Context, datasetID string, graphs []models.Graph) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin graphs transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dataset_graphs WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to clear graphs: %w", err)
	}

	query := `
		INSERT INTO dataset_graphs (dataset_id, name, image, position)
		VALUES ($1, $2, $3, $4)`
	for i, g := range graphs {
		if _, err := tx.Exec(ctx, query, datasetID, g.Name, g.Image, i); err != nil {
			return fmt.Errorf("failed to insert graph %s: %w", g.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit graphs: %w", err)
	}
	return nil
}

func (r *graphsRepository) GetByDataset(ctx context.Context, datasetID string) ([]models.Graph, error) {
	query := `
		SELECT name, image
		FROM dataset_graphs
		WHERE dataset_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query graphs: %w", err)
	}
	defer rows.Close()

	var graphs []models.Graph
	for rows.Next() {
		var g models.Graph
		if err := rows.Scan(&g.Name, &g.Image); err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graphs: %w", err)
	}
	if len(graphs) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return graphs, nil
}
