package sink

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// FileSink writes each dataset to its own file.
type FileSink struct {
	Dir    string
	Format string
	Pretty bool
	logger *log.Logger
	paths  map[string]string
}

// NewFileSink validates format and returns a sink writing under dir.
func NewFileSink(dir, format string, pretty bool, logger *log.Logger) (*FileSink, error) {
	if format == "" {
		format = "json"
	}
	if _, err := formatter.Extension(format); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FileSink{Dir: dir, Format: format, Pretty: pretty, logger: logger, paths: map[string]string{}}, nil
}

func (s *FileSink) Name() string {
	return "file"
}

func (s *FileSink) Write(ctx context.Context, dataset string, table *models.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := formatter.WriteExport(table, s.Dir, dataset, s.Format, s.Pretty)
	if err != nil {
		return fmt.Errorf("file sink: %w", err)
	}

	s.paths[dataset] = path
	s.logger.Info("wrote dataset", "dataset", dataset, "rows", table.Len(), "path", path)
	return nil
}

// Path returns where dataset was last written.
func (s *FileSink) Path(dataset string) (string, bool) {
	p, ok := s.paths[dataset]
	return p, ok
}
