package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/huh/spinner"
	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/repositories"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/sink"
	"github.com/desertthunder/spotistats/internal/tasks"
	"github.com/desertthunder/spotistats/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// PlaylistIndexFile is written next to the file sink output whenever playlists were listed.
const PlaylistIndexFile = "playlists.yml"

// fetchOptions layers command flags over the [fetch] config section.
func (r *Runner) fetchOptions(cmd *cli.Command) tasks.Options {
	fc := r.config.Fetch
	opts := tasks.Options{
		TimeRange:     fc.TimeRange,
		Limit:         fc.Limit,
		Enrich:        fc.Enrich,
		MemoizeGenres: fc.MemoizeGenres,
		AllPlaylists:  fc.AllPlaylists,
		SeedLimit:     fc.SeedLimit,
	}

	if cmd.IsSet("time-range") {
		opts.TimeRange = cmd.String("time-range")
	}
	if cmd.IsSet("limit") {
		opts.Limit = int(cmd.Int("limit"))
	}
	if cmd.IsSet("enrich") {
		opts.Enrich = cmd.Bool("enrich")
	}
	if cmd.IsSet("memoize-genres") {
		opts.MemoizeGenres = cmd.Bool("memoize-genres")
	}
	if cmd.IsSet("all-playlists") {
		opts.AllPlaylists = cmd.Bool("all-playlists")
	}
	if cmd.IsSet("seed-limit") {
		opts.SeedLimit = int(cmd.Int("seed-limit"))
	}
	opts.Seeds = cmd.StringSlice("seed")
	opts.ContinueOnError = cmd.Bool("continue-on-error")
	return opts
}

// outputConfig layers command flags over the [output] config section.
func (r *Runner) outputConfig(cmd *cli.Command) shared.OutputConfig {
	out := r.config.Output
	if cmd.IsSet("sink") {
		out.Sinks = cmd.StringSlice("sink")
	}
	if cmd.IsSet("format") {
		out.Format = cmd.String("format")
	}
	if cmd.IsSet("out") {
		out.Dir = cmd.String("out")
	}
	if cmd.IsSet("pretty") {
		out.Pretty = cmd.Bool("pretty")
	}
	return out
}

func parseDatasets(args []string) ([]tasks.Dataset, error) {
	if len(args) == 0 {
		return slices.Clone(tasks.Datasets), nil
	}

	datasets := make([]tasks.Dataset, 0, len(args))
	for _, arg := range args {
		ds, err := tasks.ParseDataset(arg)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(datasets, ds) {
			datasets = append(datasets, ds)
		}
	}
	return datasets, nil
}

func validateFetchOptions(opts tasks.Options) error {
	if !slices.Contains(shared.TimeRanges, opts.TimeRange) {
		return fmt.Errorf("%w: --time-range must be one of %v, got %q", shared.ErrInvalidArgument, shared.TimeRanges, opts.TimeRange)
	}
	if opts.Limit < 1 || opts.Limit > 50 {
		return fmt.Errorf("%w: --limit must be between 1 and 50, got %d", shared.ErrInvalidArgument, opts.Limit)
	}
	if opts.SeedLimit < 0 {
		return fmt.Errorf("%w: --seed-limit must not be negative", shared.ErrInvalidArgument)
	}
	return nil
}

// Fetch produces the requested datasets (all of them by default) and writes them to every sink.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	datasets, err := parseDatasets(cmd.Args().Slice())
	if err != nil {
		return err
	}
	opts := r.fetchOptions(cmd)
	if err := validateFetchOptions(opts); err != nil {
		return err
	}
	output := r.outputConfig(cmd)

	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = string(ds)
	}

	deps := sink.Deps{Output: output, Mongo: r.config.Mongo, Logger: r.logger}

	var runs *repositories.RunRepository
	if slices.Contains(output.Sinks, "sqlite") {
		db, err := r.database()
		if err != nil {
			return err
		}
		runs = repositories.NewRunRepository(db)
		run, err := runs.Start(names)
		if err != nil {
			return err
		}
		deps.Datasets = repositories.NewDatasetRepository(db)
		deps.RunID = run.ID
	} else {
		deps.RunID = shared.GenerateID()
	}

	result, runErr := r.runFetch(ctx, cmd, deps, opts, datasets)

	if runs != nil {
		finishErr := runErr
		if finishErr == nil && result != nil {
			finishErr = result.Err()
		}
		if err := runs.Finish(deps.RunID, finishErr); err != nil {
			r.logger.Warn("failed to record run outcome", "run", deps.RunID, "error", err)
		}
	}

	if result != nil {
		r.writeIndex(output, result.Playlists)
		r.writeSummary(deps.RunID, result)
	}

	if runErr != nil {
		return runErr
	}
	return result.Err()
}

func (r *Runner) runFetch(ctx context.Context, cmd *cli.Command, deps sink.Deps, opts tasks.Options, datasets []tasks.Dataset) (*tasks.RunResult, error) {
	var result *tasks.RunResult

	err := r.withReauth(ctx, func() error {
		sinks, err := sink.New(ctx, deps)
		if err != nil {
			return err
		}
		defer func() {
			if err := sinks.Close(context.Background()); err != nil {
				r.logger.Warn("failed to close sinks", "error", err)
			}
		}()

		engine := tasks.NewStatsEngine(r.spotify, opts, sinks.Sinks...)

		if cmd.Bool("tui") {
			result, err = r.runTUI(ctx, engine, datasets)
			return err
		}

		engine.SetLogger(shared.WithLogger(r.logger, "run", deps.RunID))
		run := func(ctx context.Context) error {
			var runErr error
			result, runErr = engine.Run(ctx, nil, datasets)
			return runErr
		}

		if cmd.Bool("no-spinner") || !isatty.IsTerminal(os.Stdout.Fd()) {
			return run(ctx)
		}
		return spinner.New().
			Title(fmt.Sprintf("Fetching %d datasets...", len(datasets))).
			Context(ctx).
			ActionWithErr(run).
			Run()
	})
	return result, err
}

// writeIndex saves the playlist name to id index alongside the file sink output.
func (r *Runner) writeIndex(output shared.OutputConfig, playlists []models.Playlist) {
	if len(playlists) == 0 {
		return
	}

	dir := output.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, PlaylistIndexFile)
	if err := formatter.WritePlaylistIndex(path, playlists); err != nil {
		r.logger.Warn("failed to write playlist index", "path", path, "error", err)
		return
	}
	r.logger.Info("playlist index saved", "path", path, "playlists", len(playlists))
}

func (r *Runner) writeSummary(runID string, result *tasks.RunResult) {
	r.writePlainHeader("Fetch Summary")
	r.writePlain("Run: %s\n\n", runID)
	for _, d := range result.Datasets {
		if d.Err != nil {
			r.writePlain("%s %-22s %v\n", ui.Err("✗"), d.Dataset, d.Err)
			continue
		}
		r.writePlain("%s %-22s %d rows, %d columns\n", ui.OK("✓"), d.Dataset, d.Table.Len(), len(d.Table.Columns))
	}
	if failed := len(result.Failed()); failed > 0 {
		r.writePlainln("%d of %d datasets failed", failed, len(result.Datasets))
	}
}

// Playlists lists the user's playlists and optionally saves the name to id index.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	opts := tasks.Options{Limit: r.config.Fetch.Limit, AllPlaylists: r.config.Fetch.AllPlaylists}
	if cmd.IsSet("all-playlists") {
		opts.AllPlaylists = cmd.Bool("all-playlists")
	}

	r.logger.Info("listing spotify playlists", "all", opts.AllPlaylists)

	var playlists []models.Playlist
	err := r.withReauth(ctx, func() error {
		var err error
		playlists, err = tasks.NewStatsEngine(r.spotify, opts).Playlists(ctx, nil)
		return err
	})
	if err != nil {
		return err
	}

	if path := cmd.String("save"); path != "" {
		if err := formatter.WritePlaylistIndex(path, playlists); err != nil {
			return err
		}
		r.logger.Info("playlist index saved", "path", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("\n")
	}
	return nil
}
