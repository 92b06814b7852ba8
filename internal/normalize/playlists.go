package normalize

import (
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

// FlattenPlaylistTracks flattens the collected items of each playlist, in playlist order.
//
// items maps a playlist id to every item of that playlist's track pages. Local files are dropped
// before unwrapping; every surviving row carries its playlist's id, name and track count.
func FlattenPlaylistTracks(playlists []models.Playlist, items map[string][]models.Record) (*models.Table, error) {
	table := models.NewTable(models.PlaylistTrackSchema.Required...)

	for _, pl := range playlists {
		for i, item := range items[pl.ID] {
			local, err := isLocal(item)
			if err != nil {
				return nil, fmt.Errorf("playlist %s item %d: %w", pl.ID, i, err)
			}
			if local {
				continue
			}

			rec, err := Unwrap(item)
			if err != nil {
				return nil, fmt.Errorf("playlist %s item %d: %w", pl.ID, i, err)
			}

			row, err := trackRow(rec)
			if err != nil {
				return nil, fmt.Errorf("playlist %s item %d: %w", pl.ID, i, err)
			}

			row[models.ColPlaylistID] = pl.ID
			row[models.ColPlaylistName] = pl.Name
			row[models.ColPlaylistTracks] = pl.TrackCount
			row[models.ColAddedAt] = rec[models.ColAddedAt]
			row[models.ColAddedBy] = rec[models.ColAddedBy]
			table.Append(row)
		}
	}

	return table, nil
}

// isLocal reads is_local from the item, falling back to the wrapped track.
func isLocal(item models.Record) (bool, error) {
	if item.Has(models.ColIsLocal) {
		return localFlag(item[models.ColIsLocal])
	}
	if track, ok := models.AsRecord(item["track"]); ok && track.Has(models.ColIsLocal) {
		return localFlag(track[models.ColIsLocal])
	}
	return false, nil
}

func localFlag(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	default:
		return false, fmt.Errorf("%w: is_local is %T, want bool", shared.ErrDataShape, v)
	}
}

// PlaylistFromRecord reads a simplified playlist object.
func PlaylistFromRecord(rec models.Record) (models.Playlist, error) {
	id, err := rec.String("id")
	if err != nil {
		return models.Playlist{}, err
	}
	name, err := rec.String("name")
	if err != nil {
		return models.Playlist{}, err
	}

	pl := models.Playlist{ID: id, Name: name}
	if tracks, ok := models.AsRecord(rec["tracks"]); ok {
		if pl.TrackCount, err = tracks.Int("total"); err != nil {
			return models.Playlist{}, fmt.Errorf("playlist %s tracks: %w", id, err)
		}
	}
	return pl, nil
}
