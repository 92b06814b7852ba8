package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/repositories"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/tasks"
)

// Deps holds what the configured sinks may need.
type Deps struct {
	Output   shared.OutputConfig
	Mongo    shared.MongoConfig
	Datasets *repositories.DatasetRepository // required by the sqlite sink
	RunID    string                          // required by the sqlite and mongo sinks
	Logger   *log.Logger
}

// Set is the list of sinks for one run plus the connections they hold.
type Set struct {
	Sinks  []tasks.Sink
	closer []func(context.Context) error
}

// Close releases every connection opened by [New].
func (s *Set) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closer {
		errs = append(errs, c(ctx))
	}
	return errors.Join(errs...)
}

// New builds the sinks named in deps.Output.Sinks, in order. An empty list means a file sink.
func New(ctx context.Context, deps Deps) (*Set, error) {
	names := deps.Output.Sinks
	if len(names) == 0 {
		names = []string{"file"}
	}

	set := &Set{}
	for _, name := range names {
		logger := shared.WithLogger(deps.logger(), "sink", name)

		switch name {
		case "file":
			s, err := NewFileSink(deps.Output.Dir, deps.Output.Format, deps.Output.Pretty, logger)
			if err != nil {
				return nil, errors.Join(err, set.Close(ctx))
			}
			set.Sinks = append(set.Sinks, s)
		case "sqlite":
			if deps.Datasets == nil {
				return nil, errors.Join(fmt.Errorf("%w: sqlite sink needs a database", shared.ErrInvalidConfig), set.Close(ctx))
			}
			s, err := NewSQLiteSink(deps.Datasets, deps.RunID, logger)
			if err != nil {
				return nil, errors.Join(err, set.Close(ctx))
			}
			set.Sinks = append(set.Sinks, s)
		case "mongo":
			s, err := ConnectMongo(ctx, deps.Mongo.URI, deps.Mongo.Database, deps.RunID, logger)
			if err != nil {
				return nil, errors.Join(err, set.Close(ctx))
			}
			set.Sinks = append(set.Sinks, s)
			set.closer = append(set.closer, s.Close)
		default:
			return nil, errors.Join(fmt.Errorf("%w: unknown sink %q", shared.ErrInvalidConfig, name), set.Close(ctx))
		}
	}
	return set, nil
}

func (d Deps) logger() *log.Logger {
	if d.Logger == nil {
		return shared.NewLogger(nil)
	}
	return d.Logger
}
