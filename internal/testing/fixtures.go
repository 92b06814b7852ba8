package testing

import "github.com/desertthunder/spotistats/internal/models"

// PageRecord builds a raw paging object. An empty next marks the final page.
func PageRecord(items []models.Record, next string, total int) models.Record {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = map[string]any(item)
	}

	page := models.Record{"items": list, "next": nil, "total": float64(total)}
	if next != "" {
		page["next"] = next
	}
	return page
}

// ArtistRecord builds a full artist object.
func ArtistRecord(id string, followers int, genres ...string) models.Record {
	g := make([]any, len(genres))
	for i, genre := range genres {
		g[i] = genre
	}
	return models.Record{
		"id":         id,
		"uri":        "spotify:artist:" + id,
		"type":       "artist",
		"name":       "Artist " + id,
		"genres":     g,
		"followers":  map[string]any{"href": nil, "total": float64(followers)},
		"popularity": float64(60),
	}
}

// TrackRecord builds a full track object whose primary artist and album artist are artistID.
func TrackRecord(id, artistID string) models.Record {
	artist := map[string]any{"id": artistID, "name": "Artist " + artistID, "type": "artist"}
	return models.Record{
		"id":           id,
		"name":         "Track " + id,
		"uri":          "spotify:track:" + id,
		"popularity":   float64(40),
		"type":         "track",
		"is_local":     false,
		"explicit":     false,
		"duration_ms":  float64(180000),
		"disc_number":  float64(1),
		"track_number": float64(1),
		"artists":      []any{artist},
		"album": map[string]any{
			"id":           "album-" + id,
			"name":         "Album " + id,
			"release_date": "2021-06-01",
			"total_tracks": float64(10),
			"type":         "album",
			"artists":      []any{artist},
		},
	}
}

// SavedTrackRecord wraps a track the way the library and playlist endpoints do.
func SavedTrackRecord(track models.Record, addedAt string, local bool) models.Record {
	return models.Record{
		"added_at": addedAt,
		"added_by": map[string]any{"id": "user"},
		"is_local": local,
		"track":    map[string]any(track),
	}
}

// PlaylistRecord builds a simplified playlist object.
func PlaylistRecord(id, name string, tracks int) models.Record {
	return models.Record{
		"id":     id,
		"name":   name,
		"tracks": map[string]any{"href": "", "total": float64(tracks)},
	}
}
