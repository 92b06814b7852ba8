// Package server runs the short-lived HTTP listener behind `spotistats auth login`.
//
// # Routing
//
// [BasicRouter] implements [Router] with [http.ServeMux] method patterns. [Middleware] added with
// Use wraps handlers registered after it; the first middleware added runs first. [Logging] and
// [Recover] are the two middlewares the login flow installs.
//
// # OAuth callback
//
// [OAuthHandler] serves the redirect URI's path. It checks the state parameter, trades the code
// through an [Exchanger] and publishes exactly one [OAuthResult]; later hits are rejected.
// [CallbackAddr] derives the listen address and path from the configured redirect URI so the
// Spotify app registration and the local listener agree.
//
// The read-only dataset API lives in internal/web and does not use this router.
package server
