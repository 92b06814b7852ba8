// Package tasks turns Spotify listening data into flat datasets with real-time progress reporting.
//
// # Datasets
//
// The [Engine] interface produces six datasets:
//
//  1. top_artists, followed_artists : artist schema
//     - Pages through the collection from the first page
//     - Flattens with [normalize.FlattenArtists]
//
//  2. top_tracks, saved_tracks : track schema
//     - Saved tracks carry added_at from the library wrapper
//
//  3. playlist_tracks : playlist track schema
//     - Lists playlists (first page by default, every page with Options.AllPlaylists)
//     - Pages through each playlist's items and drops local files
//
//  4. recommendation_tracks : track schema
//     - One recommendations call per seed via [Recommendations]
//     - Seeds default to the first Options.SeedLimit top track ids
//
// Track datasets are enriched with genres and audio features when Options.Enrich is set.
//
// # Failure Handling
//
// Every dataset is all or nothing. [StatsEngine.Run] stops at the first failure unless
// Options.ContinueOnError is set; either way the [RunResult] records which datasets were produced.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [StatsEngine] implements [Engine] with dependencies on:
//   - [services.Accessor] : the authenticated Spotify client
//   - [Sink] : destinations for finished tables (files, SQLite, MongoDB)
package tasks
