// Package normalize flattens nested Spotify objects into fixed-column [models.Table] values.
//
// # Artists
//
// [FlattenArtists] projects artist objects onto [models.ArtistSchema], lifting followers.total.
//
// # Tracks
//
// [FlattenTracks] accepts bare track objects or items that wrap a track under "track" (saved tracks,
// playlist items). [Unwrap] merges the wrapped track with its sibling fields, so both input shapes
// flatten to the same table. Only the first artist and the first album artist are kept; an empty
// artist list is a [shared.ErrDataShape] error rather than a blank cell.
//
// # Playlists
//
// [FlattenPlaylistTracks] drops local files, stamps each row with its playlist and uses
// [models.PlaylistTrackSchema].
//
// # Enrichment
//
// [Enricher.Enrich] adds genres, album_genres and audio feature columns. Lookups are made once per
// row unless [Enricher.Memoize] is set, in which case artist lookups are cached by id for the call.
package normalize
