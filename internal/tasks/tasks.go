// package tasks builds listening datasets from the Spotify Web API.
//
// The core abstraction is Engine, which runs each dataset through paging, flattening and enrichment
// and hands finished tables to sinks. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/normalize"
	"github.com/desertthunder/spotistats/internal/pager"
	"github.com/desertthunder/spotistats/internal/services"
	"github.com/desertthunder/spotistats/internal/shared"
)

// Dataset names one table the engine can produce.
type Dataset string

const (
	TopArtists           Dataset = "top_artists"
	FollowedArtists      Dataset = "followed_artists"
	TopTracks            Dataset = "top_tracks"
	SavedTracks          Dataset = "saved_tracks"
	PlaylistTracks       Dataset = "playlist_tracks"
	RecommendationTracks Dataset = "recommendation_tracks"
)

// Datasets lists every dataset in run order. Recommendations come after top tracks so they can
// reuse its ids as seeds.
var Datasets = []Dataset{TopArtists, FollowedArtists, TopTracks, SavedTracks, PlaylistTracks, RecommendationTracks}

// ParseDataset validates a dataset name.
func ParseDataset(name string) (Dataset, error) {
	ds := Dataset(name)
	if !slices.Contains(Datasets, ds) {
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownDataset, name)
	}
	return ds, nil
}

// IsTrackDataset reports whether ds is flattened with the track schema and can be enriched.
func (ds Dataset) IsTrackDataset() bool {
	return ds != TopArtists && ds != FollowedArtists
}

// Options controls how datasets are fetched.
type Options struct {
	TimeRange       string   // top artists and top tracks
	Limit           int      // page size, 0 uses the API maximum
	Enrich          bool     // join genres and audio features onto track datasets
	MemoizeGenres   bool     // cache artist lookups within one enrichment
	AllPlaylists    bool     // page through every playlist instead of the first page
	SeedLimit       int      // number of top track ids used as recommendation seeds
	Seeds           []string // explicit recommendation seeds, overrides SeedLimit
	ContinueOnError bool     // record a failed dataset and move on to the next one
}

// DefaultSeedLimit is used when Options.SeedLimit is not set.
const DefaultSeedLimit = 5

// Sink receives finished datasets.
type Sink interface {
	Name() string
	Write(ctx context.Context, dataset string, table *models.Table) error
}

// DatasetResult is the outcome of one dataset. Table is nil when Err is set.
type DatasetResult struct {
	Dataset Dataset
	Table   *models.Table
	Err     error
}

// RunResult contains every dataset outcome of a run plus the playlists seen along the way.
type RunResult struct {
	Datasets  []DatasetResult
	Playlists []models.Playlist
}

// Failed returns the datasets that were not produced.
func (r *RunResult) Failed() []DatasetResult {
	var failed []DatasetResult
	for _, d := range r.Datasets {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// Err joins every dataset failure, or returns nil when all datasets were produced.
func (r *RunResult) Err() error {
	var errs []error
	for _, d := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", d.Dataset, d.Err))
	}
	return errors.Join(errs...)
}

// Engine defines dataset operations.
type Engine interface {
	// Run produces each dataset in order and writes it to every sink.
	Run(ctx context.Context, progress chan<- ProgressUpdate, datasets []Dataset) (*RunResult, error)

	// Fetch produces a single dataset without writing it.
	Fetch(ctx context.Context, progress chan<- ProgressUpdate, dataset Dataset) (*models.Table, error)

	// Playlists lists the user's playlists.
	Playlists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error)
}

// StatsEngine implements Engine on top of a [services.Accessor].
//
// A StatsEngine is not safe for concurrent use: it remembers the tables and playlists of the
// current run so later datasets can reuse them.
type StatsEngine struct {
	spotify services.Accessor
	sinks   []Sink
	opts    Options
	logger  *log.Logger

	tables    map[Dataset]*models.Table
	playlists []models.Playlist
}

// NewStatsEngine creates a new StatsEngine.
func NewStatsEngine(spotify services.Accessor, opts Options, sinks ...Sink) *StatsEngine {
	return &StatsEngine{
		spotify: spotify,
		sinks:   sinks,
		opts:    opts,
		logger:  log.Default(),
		tables:  map[Dataset]*models.Table{},
	}
}

// SetLogger replaces the engine's logger.
func (e *StatsEngine) SetLogger(logger *log.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *StatsEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run produces each dataset in order. With no datasets given, every dataset is produced.
//
// The run stops at the first failing dataset unless Options.ContinueOnError is set, in which case the
// failure is recorded in the result and the next dataset starts.
func (e *StatsEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, datasets []Dataset) (*RunResult, error) {
	if e.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if len(datasets) == 0 {
		datasets = Datasets
	}
	for _, ds := range datasets {
		if _, err := ParseDataset(string(ds)); err != nil {
			return nil, err
		}
	}

	e.tables = map[Dataset]*models.Table{}
	e.playlists = nil

	result := &RunResult{}
	total := len(datasets)

	for i, ds := range datasets {
		e.sendProgress(progress, datasetStartUpdate(i+1, total, ds))

		table, err := e.Fetch(ctx, progress, ds)
		if err == nil {
			err = e.write(ctx, progress, ds, table)
		}

		if err != nil {
			result.Datasets = append(result.Datasets, DatasetResult{Dataset: ds, Err: err})
			e.sendProgress(progress, datasetFailedUpdate(i+1, total, ds, err))
			e.logger.Error("dataset failed", "dataset", ds, "error", err)

			if !e.opts.ContinueOnError {
				result.Playlists = e.playlists
				return result, fmt.Errorf("dataset %s: %w", ds, err)
			}
			continue
		}

		result.Datasets = append(result.Datasets, DatasetResult{Dataset: ds, Table: table})
		e.sendProgress(progress, datasetDoneUpdate(i+1, total, ds, table))
		e.logger.Info("dataset written", "dataset", ds, "rows", table.Len(), "columns", len(table.Columns))
	}

	result.Playlists = e.playlists
	return result, nil
}

func (e *StatsEngine) write(ctx context.Context, progress chan<- ProgressUpdate, ds Dataset, table *models.Table) error {
	for i, sink := range e.sinks {
		e.sendProgress(progress, writeSinkUpdate(i+1, len(e.sinks), ds, sink.Name()))
		if err := sink.Write(ctx, string(ds), table); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		e.logger.Debug("sink write", "dataset", ds, "sink", sink.Name())
	}
	return nil
}

// Fetch produces a single dataset.
func (e *StatsEngine) Fetch(ctx context.Context, progress chan<- ProgressUpdate, ds Dataset) (*models.Table, error) {
	if e.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	var (
		table *models.Table
		err   error
	)

	switch ds {
	case TopArtists, FollowedArtists:
		table, err = e.artists(ctx, progress, ds)
	case TopTracks, SavedTracks:
		table, err = e.tracks(ctx, progress, ds)
	case PlaylistTracks:
		table, err = e.playlistTracks(ctx, progress)
	case RecommendationTracks:
		table, err = e.recommendationTracks(ctx, progress)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDataset, ds)
	}
	if err != nil {
		return nil, err
	}

	if e.opts.Enrich && ds.IsTrackDataset() {
		e.sendProgress(progress, enrichUpdate(ds, table.Len()))
		enricher := normalize.Enricher{Memoize: e.opts.MemoizeGenres, Logger: e.logger}
		if table, err = enricher.Enrich(ctx, table, e.spotify, e.spotify); err != nil {
			return nil, fmt.Errorf("enrich: %w", err)
		}
	}

	e.tables[ds] = table
	return table, nil
}

func (e *StatsEngine) collectionOptions() services.CollectionOptions {
	return services.CollectionOptions{TimeRange: e.opts.TimeRange, Limit: e.opts.Limit}
}

// collect pages through a collection starting at first.
func (e *StatsEngine) collect(ctx context.Context, progress chan<- ProgressUpdate, label string, first models.Record) ([]models.Record, error) {
	walker, err := pager.NewWalker(first, e.spotify.Next)
	if err != nil {
		return nil, err
	}

	items := []models.Record{}
	for n := 1; ; n++ {
		page, ok, err := walker.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, page.Items...)

		e.sendProgress(progress, pageUpdate(label, n, len(items), page.Total))
		e.logger.Debug("page", "collection", label, "page", n, "items", len(items), "total", page.Total)
	}
}

func (e *StatsEngine) collection(ctx context.Context, progress chan<- ProgressUpdate, kind services.Kind) ([]models.Record, error) {
	first, err := e.spotify.Collection(ctx, kind, e.collectionOptions())
	if err != nil {
		return nil, err
	}
	return e.collect(ctx, progress, string(kind), first)
}

func (e *StatsEngine) artists(ctx context.Context, progress chan<- ProgressUpdate, ds Dataset) (*models.Table, error) {
	kind := services.TopArtists
	if ds == FollowedArtists {
		kind = services.FollowedArtists
	}

	items, err := e.collection(ctx, progress, kind)
	if err != nil {
		return nil, err
	}
	return normalize.FlattenArtists(items)
}

func (e *StatsEngine) tracks(ctx context.Context, progress chan<- ProgressUpdate, ds Dataset) (*models.Table, error) {
	kind := services.TopTracks
	if ds == SavedTracks {
		kind = services.SavedTracks
	}

	items, err := e.collection(ctx, progress, kind)
	if err != nil {
		return nil, err
	}
	return normalize.FlattenTracks(items)
}

// Playlists lists the user's playlists: the first page unless Options.AllPlaylists is set.
// The result is remembered for the rest of the run.
func (e *StatsEngine) Playlists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	if e.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if e.playlists != nil {
		return e.playlists, nil
	}

	first, err := e.spotify.Collection(ctx, services.Playlists, services.CollectionOptions{Limit: e.opts.Limit})
	if err != nil {
		return nil, err
	}

	var items []models.Record
	if e.opts.AllPlaylists {
		if items, err = e.collect(ctx, progress, string(services.Playlists), first); err != nil {
			return nil, err
		}
	} else {
		page, err := pager.NormalizePage(first)
		if err != nil {
			return nil, err
		}
		items = page.Items
		if page.HasNext() {
			e.logger.Info("only the first page of playlists is used", "fetched", len(items), "total", page.Total)
		}
	}

	playlists := make([]models.Playlist, 0, len(items))
	for i, item := range items {
		pl, err := normalize.PlaylistFromRecord(item)
		if err != nil {
			return nil, fmt.Errorf("playlist %d: %w", i, err)
		}
		playlists = append(playlists, pl)
	}

	e.playlists = playlists
	return playlists, nil
}

func (e *StatsEngine) playlistTracks(ctx context.Context, progress chan<- ProgressUpdate) (*models.Table, error) {
	playlists, err := e.Playlists(ctx, progress)
	if err != nil {
		return nil, err
	}

	items := make(map[string][]models.Record, len(playlists))
	for i, pl := range playlists {
		e.sendProgress(progress, playlistUpdate(i+1, len(playlists), pl))

		first, err := e.spotify.PlaylistTracks(ctx, pl.ID)
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", pl.ID, err)
		}
		if items[pl.ID], err = e.collect(ctx, progress, "playlist "+pl.Name, first); err != nil {
			return nil, fmt.Errorf("playlist %s: %w", pl.ID, err)
		}
	}

	return normalize.FlattenPlaylistTracks(playlists, items)
}

// Seeds returns the recommendation seeds: Options.Seeds when given, otherwise the first
// SeedLimit ids of the user's top tracks.
func (e *StatsEngine) Seeds(ctx context.Context) ([]string, error) {
	if len(e.opts.Seeds) > 0 {
		return e.opts.Seeds, nil
	}

	limit := e.opts.SeedLimit
	if limit <= 0 {
		limit = DefaultSeedLimit
	}

	var ids []string
	if table, ok := e.tables[TopTracks]; ok {
		col, err := table.StringColumn("id")
		if err != nil {
			return nil, err
		}
		ids = col
	} else {
		first, err := e.spotify.Collection(ctx, services.TopTracks, e.collectionOptions())
		if err != nil {
			return nil, err
		}
		page, err := pager.NormalizePage(first)
		if err != nil {
			return nil, err
		}
		for i, item := range page.Items {
			id, err := item.String("id")
			if err != nil {
				return nil, fmt.Errorf("top track %d: %w", i, err)
			}
			ids = append(ids, id)
		}
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (e *StatsEngine) recommendationTracks(ctx context.Context, progress chan<- ProgressUpdate) (*models.Table, error) {
	seeds, err := e.Seeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeds: %w", err)
	}
	if len(seeds) == 0 {
		e.logger.Warn("no recommendation seeds available")
	}

	e.sendProgress(progress, seedsUpdate(seeds))
	tracks, err := Recommendations(ctx, e.spotify, seeds)
	if err != nil {
		return nil, err
	}
	return normalize.FlattenTracks(tracks)
}
