// package services defines the Accessor interface over the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/spotistats/internal/models"
)

// Kind names a paged collection of the current user.
type Kind string

const (
	TopArtists      Kind = "top_artists"
	FollowedArtists Kind = "followed_artists"
	TopTracks       Kind = "top_tracks"
	SavedTracks     Kind = "saved_tracks"
	Playlists       Kind = "playlists"
)

// Kinds lists every collection in the order the fetch command pulls them.
var Kinds = []Kind{TopArtists, FollowedArtists, TopTracks, SavedTracks, Playlists}

// CollectionOptions narrows a collection request.
type CollectionOptions struct {
	TimeRange string // top artists and top tracks only
	Limit     int    // page size, 0 uses the API maximum
}

// Accessor is the authenticated read surface the pipeline consumes.
// Responses are returned as raw [models.Record] values; shaping them is left to the caller.
type Accessor interface {
	// Collection fetches the first page of a user collection.
	Collection(ctx context.Context, kind Kind, opts CollectionOptions) (models.Record, error)

	// Next fetches the page following page. Callers only call it when page.Next is set.
	Next(ctx context.Context, page models.Page) (models.Record, error)

	// PlaylistTracks fetches the first page of a playlist's items.
	PlaylistTracks(ctx context.Context, playlistID string) (models.Record, error)

	// Artist fetches a full artist object.
	Artist(ctx context.Context, artistID string) (models.Record, error)

	// AudioFeatures fetches the audio features of one track.
	AudioFeatures(ctx context.Context, trackID string) (models.Record, error)

	// Recommendations fetches tracks recommended from a single seed track.
	Recommendations(ctx context.Context, seedTrackID string) ([]models.Record, error)
}
