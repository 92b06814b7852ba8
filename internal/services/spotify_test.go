package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

// newTestService returns an authenticated service talking to handler.
func newTestService(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv, server
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect URI %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != DefaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Rate Limit Option", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials, WithRateLimit(5))
			if srv.limiter == nil {
				t.Error("expected limiter to be set")
			}

			srv, _ = NewSpotifyService(testCredentials, WithRateLimit(0))
			if srv.limiter != nil {
				t.Error("expected pacing to be disabled")
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")

		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "user-top-read", "user-follow-read"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q: %s", want, authURL)
			}
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
				"expiry":        "2030-01-01T00:00:00Z",
			})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.Token() == nil {
				t.Fatal("expected token to be set")
			}
			if srv.Token().AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.Token().AccessToken)
			}
			if srv.Token().Expiry.Year() != 2030 {
				t.Errorf("expected expiry to be parsed, got %v", srv.Token().Expiry)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Not Authenticated", func(t *testing.T) {
			fresh, _ := NewSpotifyService(testCredentials)
			_, err := fresh.Artist(context.Background(), "a1")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Accessor Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Accessor = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})

		t.Run("refresh updates current token", func(t *testing.T) {
			var got *oauth2.Token
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) { got = token })

			srv.notifyTokenRefresh(&oauth2.Token{AccessToken: "refreshed"})

			if got == nil || got.AccessToken != "refreshed" {
				t.Errorf("expected callback with refreshed token, got %v", got)
			}
			if srv.Token().AccessToken != "refreshed" {
				t.Errorf("expected current token to be updated, got %s", srv.Token().AccessToken)
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var capturedToken *oauth2.Token

			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { capturedToken = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if capturedToken == nil || capturedToken.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %v", capturedToken)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("skips the token it was seeded with", func(t *testing.T) {
			callCount := 0
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "stored"}},
				callback: func(token *oauth2.Token) { callCount++ },
				last:     "stored",
			}

			source.Token()
			if callCount != 0 {
				t.Errorf("expected no callback for the stored token, got %d", callCount)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: func(token *oauth2.Token) { callCount++ },
			}

			source.Token()
			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()
			source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: errors.New("token source error")},
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

func TestSpotifyRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("Collection Endpoints", func(t *testing.T) {
		tests := []struct {
			kind      Kind
			opts      CollectionOptions
			wantPath  string
			wantQuery map[string]string
		}{
			{TopArtists, CollectionOptions{}, "/me/top/artists", map[string]string{"time_range": "medium_term", "limit": "50"}},
			{TopTracks, CollectionOptions{TimeRange: "short_term", Limit: 10}, "/me/top/tracks", map[string]string{"time_range": "short_term", "limit": "10"}},
			{FollowedArtists, CollectionOptions{}, "/me/following", map[string]string{"type": "artist", "limit": "50"}},
			{SavedTracks, CollectionOptions{Limit: 20}, "/me/tracks", map[string]string{"limit": "20"}},
			{Playlists, CollectionOptions{}, "/me/playlists", map[string]string{"limit": "50"}},
		}

		for _, tt := range tests {
			t.Run(string(tt.kind), func(t *testing.T) {
				var gotReq *http.Request
				srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					gotReq = r
					w.Write([]byte(`{"items": [], "next": null, "total": 0}`))
				})

				rec, err := srv.Collection(ctx, tt.kind, tt.opts)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !rec.Has("items") {
					t.Errorf("expected raw record, got %v", rec)
				}

				if gotReq.URL.Path != tt.wantPath {
					t.Errorf("expected path %s, got %s", tt.wantPath, gotReq.URL.Path)
				}
				for k, v := range tt.wantQuery {
					if got := gotReq.URL.Query().Get(k); got != v {
						t.Errorf("query %s: expected %s, got %s", k, v, got)
					}
				}
				if got := gotReq.Header.Get("Authorization"); got != "Bearer test_access_token" {
					t.Errorf("unexpected authorization header %q", got)
				}
			})
		}
	})

	t.Run("Invalid Collection Options", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		tests := []struct {
			name string
			kind Kind
			opts CollectionOptions
		}{
			{"unknown kind", Kind("albums"), CollectionOptions{}},
			{"bad time range", TopArtists, CollectionOptions{TimeRange: "forever"}},
			{"limit too large", SavedTracks, CollectionOptions{Limit: 51}},
			{"negative limit", SavedTracks, CollectionOptions{Limit: -1}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := srv.Collection(ctx, tt.kind, tt.opts); !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
			})
		}
	})

	t.Run("Next Follows Absolute URL", func(t *testing.T) {
		var gotPath, gotOffset string
		srv, server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotOffset = r.URL.Query().Get("offset")
			w.Write([]byte(`{"items": [{"id": "t3"}], "next": null}`))
		})

		rec, err := srv.Next(ctx, models.Page{Next: server.URL + "/me/tracks?offset=2&limit=2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPath != "/me/tracks" || gotOffset != "2" {
			t.Errorf("unexpected request %s offset=%s", gotPath, gotOffset)
		}
		if items, _ := rec.Records("items"); len(items) != 1 {
			t.Errorf("expected one item, got %v", rec)
		}

		if _, err := srv.Next(ctx, models.Page{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for final page, got %v", err)
		}
	})

	t.Run("Lookup Endpoints", func(t *testing.T) {
		paths := []string{}
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			switch {
			case r.URL.Path == "/recommendations":
				if r.URL.Query().Get("seed_tracks") != "t1" {
					t.Errorf("unexpected seed %s", r.URL.Query().Get("seed_tracks"))
				}
				w.Write([]byte(`{"seeds": [], "tracks": [{"id": "r1"}, {"id": "r2"}]}`))
			default:
				w.Write([]byte(`{"id": "x", "genres": ["pop"]}`))
			}
		})

		if _, err := srv.Artist(ctx, "a1"); err != nil {
			t.Fatalf("Artist: %v", err)
		}
		if _, err := srv.AudioFeatures(ctx, "t1"); err != nil {
			t.Fatalf("AudioFeatures: %v", err)
		}
		if _, err := srv.PlaylistTracks(ctx, "p1"); err != nil {
			t.Fatalf("PlaylistTracks: %v", err)
		}
		tracks, err := srv.Recommendations(ctx, "t1")
		if err != nil {
			t.Fatalf("Recommendations: %v", err)
		}
		if len(tracks) != 2 || tracks[0]["id"] != "r1" {
			t.Errorf("unexpected recommendations %v", tracks)
		}

		want := []string{"/artists/a1", "/audio-features/t1", "/playlists/p1/tracks", "/recommendations"}
		if strings.Join(paths, ",") != strings.Join(want, ",") {
			t.Errorf("expected paths %v, got %v", want, paths)
		}

		if _, err := srv.Artist(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Status Mapping", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrTokenExpired},
			{http.StatusNotFound, shared.ErrNotFound},
			{http.StatusTooManyRequests, shared.ErrRateLimited},
			{http.StatusInternalServerError, shared.ErrAPIRequest},
			{http.StatusBadRequest, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Retry-After", "3")
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error": {"status": 0, "message": "upstream says no"}}`))
				})

				_, err := srv.Artist(ctx, "a1")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if !strings.Contains(err.Error(), "upstream says no") {
					t.Errorf("expected API message in error, got %v", err)
				}
			})
		}
	})

	t.Run("Rate Limited Is An API Failure", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := srv.Artist(ctx, "a1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrRateLimited to wrap ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Non Object Body", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		})

		if _, err := srv.AudioFeatures(ctx, "t1"); !errors.Is(err, shared.ErrDataShape) {
			t.Errorf("expected ErrDataShape, got %v", err)
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
