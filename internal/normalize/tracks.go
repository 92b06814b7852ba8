package normalize

import (
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// passthrough columns copied from the track object when present.
var trackPassthrough = []string{"popularity", "type", models.ColIsLocal, "explicit", "duration_ms", "disc_number", "track_number"}

// Unwrap replaces a wrapper item with its track merged alongside the wrapper's other fields.
//
// Records without a "track" object are returned unchanged. Track objects inside playlist
// items carry a boolean "track" flag, which is not a wrapper. A null track is a shape error.
func Unwrap(rec models.Record) (models.Record, error) {
	v, ok := rec["track"]
	if !ok {
		return rec, nil
	}

	switch v.(type) {
	case bool:
		return rec, nil
	case nil:
		return nil, fmt.Errorf("%w: item has a null track", shared.ErrDataShape)
	}

	inner, err := rec.Record("track")
	if err != nil {
		return nil, err
	}

	out := make(models.Record, len(rec)+len(inner))
	for k, v := range rec {
		if k != "track" {
			out[k] = v
		}
	}
	for k, v := range inner {
		out[k] = v
	}
	return out, nil
}

// FlattenTracks projects track objects (bare or wrapped) onto [models.TrackSchema].
func FlattenTracks(tracks []models.Record) (*models.Table, error) {
	unwrapped := make([]models.Record, len(tracks))
	for i, rec := range tracks {
		u, err := Unwrap(rec)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		unwrapped[i] = u
	}

	columns := models.TrackSchema.Columns(func(col string) bool {
		for _, rec := range unwrapped {
			if rec.Has(col) {
				return true
			}
		}
		return false
	})

	table := models.NewTable(columns...)
	for i, rec := range unwrapped {
		row, err := trackRow(rec)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		row[models.ColAddedAt] = rec[models.ColAddedAt]
		table.Append(row)
	}

	return table, nil
}

// trackRow derives the track columns from an unwrapped track object.
func trackRow(rec models.Record) (models.Row, error) {
	row := models.Row{}

	for _, key := range []string{"id", "name"} {
		v, err := rec.Get(key)
		if err != nil {
			return nil, err
		}
		row[key] = v
	}
	for _, key := range trackPassthrough {
		row[key] = intValue(rec[key])
	}

	album, err := rec.Record("album")
	if err != nil {
		return nil, err
	}
	if row["album_id"], err = album.Get("id"); err != nil {
		return nil, fmt.Errorf("album: %w", err)
	}
	if row["album_name"], err = album.Get("name"); err != nil {
		return nil, fmt.Errorf("album: %w", err)
	}
	row["album_release_date"] = album["release_date"]
	row["album_tracks"] = intValue(album["total_tracks"])
	row["album_type"] = album["type"]

	albumArtist, err := album.First("artists")
	if err != nil {
		return nil, fmt.Errorf("album: %w", err)
	}
	if row["album_artist_id"], err = albumArtist.Get("id"); err != nil {
		return nil, fmt.Errorf("album artist: %w", err)
	}
	if row["album_artist_name"], err = albumArtist.Get("name"); err != nil {
		return nil, fmt.Errorf("album artist: %w", err)
	}

	artist, err := rec.First("artists")
	if err != nil {
		return nil, err
	}
	if row["artist_id"], err = artist.Get("id"); err != nil {
		return nil, fmt.Errorf("artist: %w", err)
	}
	if row["artist_name"], err = artist.Get("name"); err != nil {
		return nil, fmt.Errorf("artist: %w", err)
	}

	return row, nil
}
