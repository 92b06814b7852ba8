// Package services implements the [Accessor] interface for the Spotify Web API.
//
// # Accessor
//
// The pipeline never sees typed API responses. Every call returns the decoded JSON object as a
// [models.Record] and paging, flattening and enrichment happen downstream. This keeps the client
// thin: one GET per call, no retries and no caching.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh. The authorize and
// token endpoints and the scope names come from the zmb3/spotify auth package.
//
// The [oauth2.Client] refreshes expired tokens using the refresh token. Each time the token source
// hands out a new access token the callback set with [SpotifyService.SetTokenRefreshCallback]
// runs, which the CLI uses to persist the token to config.toml.
//
// Requests are paced by an optional [rate.Limiter]. Pacing only spaces calls out; a 429 response
// is still reported as [shared.ErrRateLimited] and not retried.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : 401 from the API, reauthorization needed
//   - [shared.ErrRateLimited] : 429 from the API
//   - [shared.ErrNotFound] : 404 from the API
//   - [shared.ErrAPIRequest] : any other transport or HTTP failure
//   - [shared.ErrDataShape] : response body is not a JSON object
package services
