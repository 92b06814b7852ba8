package models

import "slices"

// Column names shared by the track schemas.
const (
	ColAddedAt        = "added_at"
	ColAddedBy        = "added_by"
	ColPlaylistID     = "playlist_id"
	ColPlaylistName   = "playlist_name"
	ColPlaylistTracks = "playlist_tracks"
	ColIsLocal        = "is_local"
	ColGenres         = "genres"
	ColAlbumGenres    = "album_genres"
)

// Schema is an explicit projection: required columns always appear, conditional
// columns only appear when at least one input record carried them.
type Schema struct {
	Required    []string
	Conditional []string
}

// Columns resolves the output column list. present reports whether some input
// carried a conditional column.
func (s Schema) Columns(present func(col string) bool) []string {
	cols := append([]string(nil), s.Required...)
	for _, col := range s.Conditional {
		if present(col) && !slices.Contains(cols, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// ArtistSchema is the flattened artist projection.
var ArtistSchema = Schema{
	Required: []string{"id", "uri", "type", "name", "genres", "followers"},
}

var trackColumns = []string{
	"id", "name", "popularity", "type", ColIsLocal, "explicit", "duration_ms", "disc_number", "track_number",
	"artist_id", "artist_name", "album_artist_id", "album_artist_name",
	"album_id", "album_name", "album_release_date", "album_tracks", "album_type",
}

// TrackSchema is the flattened track projection used by saved, top and
// recommended tracks.
var TrackSchema = Schema{
	Required:    trackColumns,
	Conditional: []string{ColAddedAt},
}

// PlaylistTrackSchema extends the track projection with playlist annotations.
var PlaylistTrackSchema = Schema{
	Required: append(append([]string(nil), trackColumns...),
		ColPlaylistID, ColPlaylistName, ColPlaylistTracks, ColAddedAt, ColAddedBy),
}
