package repositories

import (
	"context"
	"fmt"

	"github.com/moevm/nosql1h25-mldata/pkg/database"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// GraphRecord is the archive representation of one stored chart row.
type GraphRecord struct {
	DatasetID string `json:"dataset_id"`
	Name      string `json:"name"`
	Image     []byte `json:"image"`
	Position  int    `json:"position"`
}

// DatabaseDump is the full structured dump of the metadata store.
type DatabaseDump struct {
	Datasets []models.Dataset     `json:"datasets"`
	Activity []models.ActivityDay `json:"activity"`
	Graphs   []GraphRecord        `json:"graphs"`
}

// ArchiveRepository dumps and restores the whole metadata store for
// archive export/import.
type ArchiveRepository interface {
	// DumpAll reads every row of every collection.
	DumpAll(ctx context.Context) (*DatabaseDump, error)
	// RestoreAll replaces the whole store with the dump's contents in
	// a single transaction: either the full new state lands or the
	// prior state stays.
	RestoreAll(ctx context.Context, dump *DatabaseDump) error
}

type archiveRepository struct {
	db *database.DB
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(db *database.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

var _ ArchiveRepository = (*archiveRepository)(nil)

func (r *archiveRepository) DumpAll(ctx context.Context) (*DatabaseDump, error) {
	dump := &DatabaseDump{}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, creation_date, author, author_login,
		       row_count, column_count, size_kb, path,
		       last_version_number, last_modified_date, last_modified_by
		FROM dataset_info
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to dump dataset_info: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreationDate,
			&d.Author, &d.AuthorLogin, &d.RowCount, &d.ColumnCount, &d.SizeKB,
			&d.Path, &d.LastVersionNumber, &d.LastModifiedDate, &d.LastModifiedBy); err != nil {
			return nil, fmt.Errorf("failed to scan dataset dump row: %w", err)
		}
		dump.Datasets = append(dump.Datasets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dataset dump: %w", err)
	}

	actRows, err := r.db.Query(ctx, `
		SELECT dataset_id, to_char(day, 'YYYY-MM-DD'), views, downloads
		FROM dataset_activity
		ORDER BY dataset_id, day`)
	if err != nil {
		return nil, fmt.Errorf("failed to dump dataset_activity: %w", err)
	}
	defer actRows.Close()
	for actRows.Next() {
		var a models.ActivityDay
		if err := actRows.Scan(&a.DatasetID, &a.Day, &a.Views, &a.Downloads); err != nil {
			return nil, fmt.Errorf("failed to scan activity dump row: %w", err)
		}
		dump.Activity = append(dump.Activity, a)
	}
	if err := actRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity dump: %w", err)
	}

	graphRows, err := r.db.Query(ctx, `
		SELECT dataset_id, name, image, position
		FROM dataset_graphs
		ORDER BY dataset_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to dump dataset_graphs: %w", err)
	}
	defer graphRows.Close()
	for graphRows.Next() {
		var g GraphRecord
		if err := graphRows.Scan(&g.DatasetID, &g.Name, &g.Image, &g.Position); err != nil {
			return nil, fmt.Errorf("failed to scan graph dump row: %w", err)
		}
		dump.Graphs = append(dump.Graphs, g)
	}
	if err := graphRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graph dump: %w", err)
	}

	return dump, nil
}

func (r *archiveRepository) RestoreAll(ctx context.Context, dump *DatabaseDump) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Children first, then the parent table the FKs hang off.
	for _, table := range []string{"dataset_graphs", "dataset_activity", "dataset_info"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, d := range dump.Datasets {
		_, err := tx.Exec(ctx, `
			INSERT INTO dataset_info (
				id, name, description, creation_date, author, author_login,
				row_count, column_count, size_kb, path,
				last_version_number, last_modified_date, last_modified_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			d.ID, d.Name, d.Description, d.CreationDate, d.Author, d.AuthorLogin,
			d.RowCount, d.ColumnCount, d.SizeKB, d.Path,
			d.LastVersionNumber, d.LastModifiedDate, d.LastModifiedBy)
		if err != nil {
			return fmt.Errorf("failed to restore dataset %s: %w", d.ID, err)
		}
	}

	for _, a := range dump.Activity {
		_, err := tx.Exec(ctx, `
			INSERT INTO dataset_activity (dataset_id, day, views, downloads)
			VALUES ($1, $2::date, $3, $4)`,
			a.DatasetID, a.Day, a.Views, a.Downloads)
		if err != nil {
			return fmt.Errorf("failed to restore activity for %s: %w", a.DatasetID, err)
		}
	}

	for _, g := range dump.Graphs {
		_, err := tx.Exec(ctx, `
			INSERT INTO dataset_graphs (dataset_id, name, image, position)
			VALUES ($1, $2, $3, $4)`,
			g.DatasetID, g.Name, g.Image, g.Position)
		if err != nil {
			return fmt.Errorf("failed to restore graph %s/%s: %w", g.DatasetID, g.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}
