// Spotify Web API implementation of [Accessor]
//
// Endpoint reference: https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// DefaultRedirectURI is used when the credentials carry no redirect_uri.
	DefaultRedirectURI = "http://127.0.0.1:3000/callback"

	maxPageLimit         = 50
	maxPlaylistPageLimit = 100
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// SpotifyService implements [Accessor] for the Spotify Web API.
// Uses [oauth2] for authentication and returns every response body as a raw [models.Record].
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	logger         *log.Logger
	onTokenRefresh func(*oauth2.Token)
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at another API root, such as an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(s *SpotifyService) { s.baseURL = baseURL }
}

// WithHTTPClient sets the client used underneath the OAuth2 transport.
func WithHTTPClient(client *http.Client) Option {
	return func(s *SpotifyService) { s.baseClient = client }
}

// WithRateLimit spaces requests to at most rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = logger }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	s := &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		baseClient: http.DefaultClient,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token without authenticating the service.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token"
// (optionally with "refresh_token", "token_type" and an RFC 3339 "expiry") or an "auth_code".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    credentials["token_type"],
		}
		if expiry, err := time.Parse(time.RFC3339, credentials["expiry"]); err == nil {
			token.Expiry = expiry
		}
		return s.AuthenticateToken(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.Exchange(ctx, authCode)
		if err != nil {
			return err
		}
		return s.AuthenticateToken(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// AuthenticateToken authenticates with an existing token. Refreshed tokens are reported
// through the callback set with [SpotifyService.SetTokenRefreshCallback].
func (s *SpotifyService) AuthenticateToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrMissingCredentials)
	}

	ctx = s.oauthContext(ctx)
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.notifyTokenRefresh,
		last:     token.AccessToken,
	}

	s.token = token
	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

// SetTokenRefreshCallback sets a function called whenever a new access token is issued.
func (s *SpotifyService) SetTokenRefreshCallback(callback func(*oauth2.Token)) {
	s.onTokenRefresh = callback
}

func (s *SpotifyService) notifyTokenRefresh(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// Token returns the current token, or nil before authentication.
func (s *SpotifyService) Token() *oauth2.Token {
	return s.token
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	if s.baseClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// refreshableTokenSource wraps a token source and reports every new access token.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

// Token implements [oauth2.TokenSource].
func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// apiError is the error object Spotify returns with non-2xx responses.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs an authenticated GET and decodes the body as a JSON object.
func (s *SpotifyService) doRequest(ctx context.Context, rawURL string) (models.Record, error) {
	if s.httpClient == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if s.logger != nil {
		s.logger.Debug("spotify request", "url", rawURL, "status", resp.StatusCode, "duration", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, body)
	}

	return models.DecodeRecord(body)
}

// statusError maps a non-2xx response onto the shared sentinels.
func statusError(resp *http.Response, body []byte) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		if after := resp.Header.Get("Retry-After"); after != "" {
			return fmt.Errorf("%w: %s (retry after %ss)", shared.ErrRateLimited, msg, after)
		}
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

func (s *SpotifyService) endpoint(path string, query url.Values) string {
	if len(query) == 0 {
		return s.baseURL + path
	}
	return s.baseURL + path + "?" + query.Encode()
}

// Collection fetches the first page of a user collection.
func (s *SpotifyService) Collection(ctx context.Context, kind Kind, opts CollectionOptions) (models.Record, error) {
	limit, err := pageLimit(opts.Limit, maxPageLimit)
	if err != nil {
		return nil, err
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}}

	var path string
	switch kind {
	case TopArtists, TopTracks:
		timeRange := opts.TimeRange
		if timeRange == "" {
			timeRange = "medium_term"
		}
		if !slices.Contains(shared.TimeRanges, timeRange) {
			return nil, fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, timeRange)
		}
		query.Set("time_range", timeRange)
		path = "/me/top/artists"
		if kind == TopTracks {
			path = "/me/top/tracks"
		}
	case FollowedArtists:
		query.Set("type", "artist")
		path = "/me/following"
	case SavedTracks:
		path = "/me/tracks"
	case Playlists:
		path = "/me/playlists"
	default:
		return nil, fmt.Errorf("%w: collection %q", shared.ErrInvalidArgument, kind)
	}

	return s.doRequest(ctx, s.endpoint(path, query))
}

// Next fetches the page following page.
func (s *SpotifyService) Next(ctx context.Context, page models.Page) (models.Record, error) {
	if !page.HasNext() {
		return nil, fmt.Errorf("%w: page has no next URL", shared.ErrInvalidArgument)
	}
	return s.doRequest(ctx, page.Next)
}

// PlaylistTracks fetches the first page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) (models.Record, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	query := url.Values{"limit": {strconv.Itoa(maxPlaylistPageLimit)}}
	return s.doRequest(ctx, s.endpoint("/playlists/"+url.PathEscape(playlistID)+"/tracks", query))
}

// Artist fetches a full artist object.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (models.Record, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	return s.doRequest(ctx, s.endpoint("/artists/"+url.PathEscape(artistID), nil))
}

// AudioFeatures fetches the audio features of one track.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackID string) (models.Record, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	return s.doRequest(ctx, s.endpoint("/audio-features/"+url.PathEscape(trackID), nil))
}

// Recommendations fetches tracks recommended from a single seed track.
func (s *SpotifyService) Recommendations(ctx context.Context, seedTrackID string) ([]models.Record, error) {
	if seedTrackID == "" {
		return nil, fmt.Errorf("%w: seed track id", shared.ErrMissingArgument)
	}

	resp, err := s.doRequest(ctx, s.endpoint("/recommendations", url.Values{"seed_tracks": {seedTrackID}}))
	if err != nil {
		return nil, err
	}
	return resp.Records("tracks")
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (models.Record, error) {
	return s.doRequest(ctx, s.endpoint("/me", nil))
}

func pageLimit(limit, ceiling int) (int, error) {
	switch {
	case limit == 0:
		return ceiling, nil
	case limit < 0 || limit > ceiling:
		return 0, fmt.Errorf("%w: limit %d outside 1..%d", shared.ErrInvalidArgument, limit, ceiling)
	default:
		return limit, nil
	}
}
