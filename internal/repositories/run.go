package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// RunRepository tracks fetch runs and their outcome.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start records a new running run for the given datasets
func (r *RunRepository) Start(datasets []string) (*models.Run, error) {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	list, err := encodeList(datasets)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:        shared.GenerateID(),
		Sequence:  sequence,
		Status:    models.RunRunning,
		Datasets:  append([]string{}, datasets...),
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO runs (id, sequence, status, datasets, started_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, run.ID, run.Sequence, run.Status, list, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// Finish marks a running run as succeeded, or failed when runErr is non-nil
func (r *RunRepository) Finish(id string, runErr error) error {
	status, message := models.RunSucceeded, ""
	if runErr != nil {
		status, message = models.RunFailed, runErr.Error()
	}

	query := `
		UPDATE runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query, status, message, time.Now().UTC(), id, models.RunRunning)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s is not running", shared.ErrRunNotFound, id)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, status, datasets, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := r.scan(r.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}

// List retrieves the most recent runs, newest first. A limit of zero or less returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, status, datasets, error, started_at, finished_at
		FROM runs
		ORDER BY sequence DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scan(row scanner) (*models.Run, error) {
	var (
		run        models.Run
		datasets   string
		finishedAt sql.NullTime
	)

	err := row.Scan(&run.ID, &run.Sequence, &run.Status, &datasets, &run.Error, &run.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.Datasets, err = decodeList(datasets); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}
