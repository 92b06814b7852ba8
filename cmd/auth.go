package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/server"
	"github.com/desertthunder/spotistats/internal/services"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// userReader is implemented by clients that can describe the authorized account.
type userReader interface {
	CurrentUser(ctx context.Context) (models.Record, error)
}

// AuthLogin performs the OAuth2 authorization code flow and saves the token to the config file.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization,
// and exchanges the returned code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.newSpotifyService()
	if err != nil {
		return fmt.Errorf("%w: set credentials.spotify client_id and client_secret, or SPOTIFY_ID and SPOTIFY_SECRET", err)
	}

	token, err := r.doOAuth(ctx, svc, "authorization", !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("%s Authorization successful", ui.OK("✓"))
	r.writePlain("%s Tokens saved to %s\n\n", ui.OK("✓"), r.configPath)
	r.writePlain("You can now use: spotistats fetch\n")
	return nil
}

// AuthStatus reports whether a token is stored and which account it belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token := r.config.Credentials.Spotify.Token()

	status := map[string]any{
		"authenticated": false,
		"client_id":     r.config.Credentials.Spotify.ClientID != "",
	}
	if token != nil {
		status["authenticated"] = true
		status["refreshable"] = token.RefreshToken != ""
		if !token.Expiry.IsZero() {
			status["expiry"] = token.Expiry.Format(time.RFC3339)
			status["expired"] = time.Now().After(token.Expiry)
		}
	}

	if current, ok := r.spotify.(userReader); ok {
		user, err := current.CurrentUser(ctx)
		if err != nil {
			r.logger.Warn("failed to fetch current user", "error", err)
			status["error"] = err.Error()
		} else {
			status["user"] = user["display_name"]
			status["user_id"] = user["id"]
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if token == nil {
		r.writePlain("Authentication: %s Not authenticated\n", ui.Err("✗"))
		return r.writePlain("Run 'spotistats auth login' to authorize.\n")
	}

	r.writePlain("Authentication: %s Token stored\n", ui.OK("✓"))
	if expiry, ok := status["expiry"]; ok {
		if status["expired"] == true {
			r.writePlain("Expiry: %s %s\n", expiry, ui.Warn("(expired, will refresh on next request)"))
		} else {
			r.writePlain("Expiry: %s\n", expiry)
		}
	}
	if user, ok := status["user"]; ok {
		r.writePlain("User: %v (%v)\n", user, status["user_id"])
	}
	if msg, ok := status["error"]; ok {
		r.writePlain("API check: %s %v\n", ui.Err("✗"), msg)
	}
	return nil
}

// doOAuth runs the authorization flow with a local callback server bound to the redirect URI.
func (r *Runner) doOAuth(ctx context.Context, svc *services.SpotifyService, prefix string, openBrowser bool) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	redirectURI := r.config.Credentials.Spotify.RedirectURI
	if redirectURI == "" {
		redirectURI = services.DefaultRedirectURI
	}
	addr, path, err := server.CallbackAddr(redirectURI)
	if err != nil {
		return nil, err
	}

	authURL := svc.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(svc, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	opened := false
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("%s Could not open browser automatically.", ui.Warn("⚠"))
		} else {
			opened = true
		}
	}
	if !opened {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// withReauth runs fn and, when the API rejects the stored token, reauthorizes once and retries.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, shared.ErrTokenExpired) {
		return err
	}

	r.writePlainln("%s Authentication token expired. Starting reauthorization...\n", ui.Warn("⚠"))

	svc, svcErr := r.newSpotifyService()
	if svcErr != nil {
		return fmt.Errorf("reauthorization failed: %w", svcErr)
	}
	token, authErr := r.doOAuth(ctx, svc, "reauthorization", true)
	if authErr != nil {
		return fmt.Errorf("reauthorization failed: %w", authErr)
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.spotify = nil
	if err := r.initSpotify(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("%s Successfully reauthenticated. Retrying operation...\n", ui.OK("✓"))
	return fn()
}
