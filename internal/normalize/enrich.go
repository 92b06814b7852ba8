package normalize

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/models"
)

// ArtistLookup fetches a full artist object by id.
type ArtistLookup interface {
	Artist(ctx context.Context, id string) (models.Record, error)
}

// AudioFeatureLookup fetches the audio features of a track by id.
type AudioFeatureLookup interface {
	AudioFeatures(ctx context.Context, trackID string) (models.Record, error)
}

// Enricher joins genres and audio features onto a track table.
type Enricher struct {
	// Memoize caches artist lookups by id for the duration of one Enrich call.
	// Off by default: every row triggers its own artist lookup.
	Memoize bool
	Logger  *log.Logger
}

// Enrich returns a copy of table with genres, album_genres and one column per audio feature.
//
// Lookups run in three sequential passes (artist genres, album artist genres, audio features) and
// the first failure aborts the whole call. Feature keys that already exist as columns are skipped.
func (e Enricher) Enrich(ctx context.Context, table *models.Table, artists ArtistLookup, features AudioFeatureLookup) (*models.Table, error) {
	trackIDs, err := table.StringColumn("id")
	if err != nil {
		return nil, err
	}
	artistIDs, err := table.StringColumn("artist_id")
	if err != nil {
		return nil, err
	}
	albumArtistIDs, err := table.StringColumn("album_artist_id")
	if err != nil {
		return nil, err
	}

	genresOf := e.genreLookup(artists)

	genres := make([]any, len(artistIDs))
	for i, id := range artistIDs {
		if genres[i], err = genresOf(ctx, id); err != nil {
			return nil, fmt.Errorf("genres for artist %s: %w", id, err)
		}
	}

	albumGenres := make([]any, len(albumArtistIDs))
	for i, id := range albumArtistIDs {
		if albumGenres[i], err = genresOf(ctx, id); err != nil {
			return nil, fmt.Errorf("genres for album artist %s: %w", id, err)
		}
	}

	rows := make([]models.Record, len(trackIDs))
	keys := map[string]struct{}{}
	for i, id := range trackIDs {
		f, err := features.AudioFeatures(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("audio features for track %s: %w", id, err)
		}
		rows[i] = f
		for k := range f {
			keys[k] = struct{}{}
		}
	}

	out, err := table.WithColumn(models.ColGenres, genres)
	if err != nil {
		return nil, err
	}
	if out, err = out.WithColumn(models.ColAlbumGenres, albumGenres); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		if !out.HasColumn(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		values := make([]any, len(rows))
		for i, f := range rows {
			values[i] = f[name]
		}
		if out, err = out.WithColumn(name, values); err != nil {
			return nil, err
		}
	}

	if e.Logger != nil {
		e.Logger.Debug("enriched tracks", "rows", out.Len(), "features", len(names), "memoized", e.Memoize)
	}

	return out, nil
}

// genreLookup returns a function resolving an artist id to its genres.
func (e Enricher) genreLookup(artists ArtistLookup) func(context.Context, string) ([]string, error) {
	fetch := func(ctx context.Context, id string) ([]string, error) {
		artist, err := artists.Artist(ctx, id)
		if err != nil {
			return nil, err
		}
		return artist.Strings("genres")
	}

	if !e.Memoize {
		return fetch
	}

	cache := map[string][]string{}
	return func(ctx context.Context, id string) ([]string, error) {
		if g, ok := cache[id]; ok {
			return g, nil
		}
		g, err := fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		cache[id] = g
		return g, nil
	}
}
