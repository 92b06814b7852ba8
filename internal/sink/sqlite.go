package sink

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/repositories"
	"github.com/desertthunder/spotistats/internal/shared"
)

// SQLiteSink stores datasets under a single run.
type SQLiteSink struct {
	repo   *repositories.DatasetRepository
	runID  string
	logger *log.Logger
	saved  []*models.Dataset
}

// NewSQLiteSink returns a sink attaching every dataset to runID, which must already exist.
func NewSQLiteSink(repo *repositories.DatasetRepository, runID string, logger *log.Logger) (*SQLiteSink, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SQLiteSink{repo: repo, runID: runID, logger: logger}, nil
}

func (s *SQLiteSink) Name() string {
	return "sqlite"
}

func (s *SQLiteSink) Write(ctx context.Context, dataset string, table *models.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ds, err := s.repo.Save(s.runID, dataset, table)
	if err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}

	s.saved = append(s.saved, ds)
	s.logger.Info("stored dataset", "dataset", dataset, "rows", ds.RowCount, "id", ds.ID)
	return nil
}

// Saved returns the datasets stored so far, in write order.
func (s *SQLiteSink) Saved() []*models.Dataset {
	return s.saved
}
