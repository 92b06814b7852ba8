package models

import "time"

// Dataset is a stored snapshot of one table. Table is nil in listings.
type Dataset struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
	Table     *Table    `json:"table,omitempty"`
}

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one invocation of the fetch pipeline.
type Run struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	Status     string     `json:"status"`
	Datasets   []string   `json:"datasets"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
