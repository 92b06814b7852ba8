package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/services"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Accessor
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Accessor
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, fetchCommand, playlistsCommand, datasetsCommand, runsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration, applies env overrides and log flags, and builds the Spotify
// client when a token is stored. Commands that need the client check for it themselves.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, err
	}

	if err := shared.ApplyEnv(config, cmd.StringSlice("env")...); err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config

	level := shared.ParseLogLevel(config.Log.Level)
	switch {
	case cmd.Bool("verbose"):
		level = log.DebugLevel
	case cmd.Bool("quiet"):
		level = log.ErrorLevel
	}
	shared.SetLogLevel(r.logger, level)

	if r.spotify == nil {
		if err := r.initSpotify(ctx); err != nil {
			r.logger.Debug("spotify client not ready", "error", err)
		}
	}

	return ctx, nil
}

// initSpotify builds an authenticated client from the stored token and persists refreshed tokens.
func (r *Runner) initSpotify(ctx context.Context) error {
	svc, err := r.newSpotifyService()
	if err != nil {
		return err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return shared.ErrNotAuthenticated
	}

	svc.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			r.logger.Debug("refreshed token saved", "path", r.configPath)
		}
	})

	if err := svc.AuthenticateToken(ctx, token); err != nil {
		return err
	}

	r.spotify = svc
	return nil
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	return services.NewSpotifyService(
		r.config.Credentials.Spotify.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.Fetch.RateLimit),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: run `spotistats auth login` first", shared.ErrNotAuthenticated)
	}
	return nil
}

// saveTokens updates the in-memory config and, when a config path is known, writes it back.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidArgument)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// database opens the configured SQLite file and applies pending migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger, e.g. with a file logger while a TUI is running.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
