package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// DatasetRepository stores table snapshots.
//
// Each Save appends a new snapshot; earlier snapshots of the same dataset stay available by id.
type DatasetRepository struct {
	db *sql.DB
}

// NewDatasetRepository creates a new DatasetRepository with the given database connection
func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Save inserts a snapshot of table under name with generated ID and sequence
func (r *DatasetRepository) Save(runID, name string, table *models.Table) (*models.Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}

	sequence, err := NextSequence(r.db, "datasets")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	data, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table: %w", err)
	}
	columns, err := encodeList(table.Columns)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{
		ID:        shared.GenerateID(),
		Sequence:  sequence,
		RunID:     runID,
		Name:      name,
		Columns:   append([]string(nil), table.Columns...),
		RowCount:  table.Len(),
		CreatedAt: time.Now().UTC(),
		Table:     table,
	}

	query := `
		INSERT INTO datasets (id, sequence, run_id, name, columns, row_count, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, ds.ID, ds.Sequence, ds.RunID, ds.Name, columns, ds.RowCount, data, ds.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}

	return ds, nil
}

// Get retrieves a snapshot with its table by ID, excluding soft-deleted snapshots
func (r *DatasetRepository) Get(id string) (*models.Dataset, error) {
	query := `
		SELECT id, sequence, run_id, name, columns, row_count, created_at, data
		FROM datasets
		WHERE id = ? AND deleted_at IS NULL
	`

	ds, err := r.scanFull(r.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	return ds, nil
}

// Latest retrieves the most recent snapshot of a dataset with its table
func (r *DatasetRepository) Latest(name string) (*models.Dataset, error) {
	query := `
		SELECT id, sequence, run_id, name, columns, row_count, created_at, data
		FROM datasets
		WHERE name = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	ds, err := r.scanFull(r.db.QueryRow(query, name))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	return ds, nil
}

// List retrieves snapshot summaries, newest first. Criteria may filter by "name" and "run_id".
func (r *DatasetRepository) List(criteria map[string]any) ([]*models.Dataset, error) {
	query := `
		SELECT id, sequence, run_id, name, columns, row_count, created_at
		FROM datasets
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := []*models.Dataset{}
	for rows.Next() {
		ds, err := r.scanSummary(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return datasets, nil
}

// Names returns the distinct names of stored datasets in alphabetical order
func (r *DatasetRepository) Names() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT name FROM datasets WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete soft-deletes a snapshot by ID
func (r *DatasetRepository) Delete(id string) error {
	query := `
		UPDATE datasets
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrDatasetNotFound, id)
	}

	return nil
}

// scanSummary scans a row without the data column into a [models.Dataset]
func (r *DatasetRepository) scanSummary(row scanner) (*models.Dataset, error) {
	var (
		ds      models.Dataset
		columns string
	)

	err := row.Scan(&ds.ID, &ds.Sequence, &ds.RunID, &ds.Name, &columns, &ds.RowCount, &ds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if ds.Columns, err = decodeList(columns); err != nil {
		return nil, err
	}
	return &ds, nil
}

// scanFull scans a row including the data column and decodes the table
func (r *DatasetRepository) scanFull(row scanner) (*models.Dataset, error) {
	var (
		ds      models.Dataset
		columns string
		data    []byte
	)

	err := row.Scan(&ds.ID, &ds.Sequence, &ds.RunID, &ds.Name, &columns, &ds.RowCount, &ds.CreatedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if ds.Columns, err = decodeList(columns); err != nil {
		return nil, err
	}

	table, err := models.DecodeTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	ds.Table = table

	return &ds, nil
}
