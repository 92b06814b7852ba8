package normalize

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
)

func stub(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name, "type": "artist"}
}

// trackRecord builds a full track object as returned by the tracks endpoints.
func trackRecord(id, artistID, albumArtistID string) models.Record {
	return models.Record{
		"id":           id,
		"name":         "Track " + id,
		"popularity":   float64(50),
		"type":         "track",
		"is_local":     false,
		"explicit":     false,
		"duration_ms":  float64(200000),
		"disc_number":  float64(1),
		"track_number": float64(3),
		"artists":      []any{stub(artistID, "Artist "+artistID), stub("feat", "Featured")},
		"album": map[string]any{
			"id":           "album-" + id,
			"name":         "Album " + id,
			"release_date": "2020-01-01",
			"total_tracks": float64(12),
			"type":         "album",
			"artists":      []any{stub(albumArtistID, "Album Artist "+albumArtistID)},
		},
	}
}

// savedItem wraps a track the way /me/tracks does.
func savedItem(track models.Record, addedAt string) models.Record {
	return models.Record{"added_at": addedAt, "track": map[string]any(track)}
}

type fakeLookup struct {
	genres       map[string][]any
	features     map[string]models.Record
	artistCalls  []string
	featureCalls []string
	failArtist   string
	failFeature  string
}

func (f *fakeLookup) Artist(ctx context.Context, id string) (models.Record, error) {
	f.artistCalls = append(f.artistCalls, id)
	if id == f.failArtist {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrAPIRequest, id)
	}
	return models.Record{"id": id, "genres": f.genres[id]}, nil
}

func (f *fakeLookup) AudioFeatures(ctx context.Context, id string) (models.Record, error) {
	f.featureCalls = append(f.featureCalls, id)
	if id == f.failFeature {
		return nil, fmt.Errorf("%w: features %s", shared.ErrAPIRequest, id)
	}
	return f.features[id], nil
}
