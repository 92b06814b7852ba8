package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Time ranges accepted by the top artists and top tracks endpoints.
var TimeRanges = []string{"short_term", "medium_term", "long_term"}

// Output formats understood by the file sink.
var OutputFormats = []string{"json", "csv", "text", "markdown"}

// Sink names understood by the pipeline.
var SinkNames = []string{"file", "sqlite", "mongo"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Fetch       FetchConfig       `toml:"fetch"`
	Output      OutputConfig      `toml:"output"`
	Mongo       MongoConfig       `toml:"mongo"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service credentials.
type CredentialsConfig struct {
	File    string        `toml:"file"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued token.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri" yaml:"redirect_uri"`
	AccessToken  string `toml:"access_token" yaml:"-"`
	RefreshToken string `toml:"refresh_token" yaml:"-"`
	TokenType    string `toml:"token_type" yaml:"-"`
	Expiry       string `toml:"expiry" yaml:"-"` // RFC 3339
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback and dataset API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// FetchConfig controls how datasets are pulled from the API.
type FetchConfig struct {
	TimeRange     string  `toml:"time_range"`
	Limit         int     `toml:"limit"`
	Enrich        bool    `toml:"enrich"`
	MemoizeGenres bool    `toml:"memoize_genres"`
	AllPlaylists  bool    `toml:"all_playlists"`
	SeedLimit     int     `toml:"seed_limit"`
	RateLimit     float64 `toml:"rate_limit"` // requests per second, 0 disables pacing
}

// OutputConfig controls where finished datasets go.
type OutputConfig struct {
	Dir    string   `toml:"dir"`
	Format string   `toml:"format"`
	Pretty bool     `toml:"pretty"`
	Sinks  []string `toml:"sinks"`
}

// MongoConfig contains the document store connection used by the mongo sink.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored token, or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
	}
	if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
		token.Expiry = expiry
	}
	return token
}

// Update stores token in the config. Spotify omits the refresh token on refresh responses,
// so an empty refresh token keeps the previous one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	if token.Expiry.IsZero() {
		s.Expiry = ""
	} else {
		s.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// LoadConfig reads a TOML configuration file, layering it over [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if config.Credentials.File != "" {
		creds, err := LoadCredentialsYAML(config.Credentials.File)
		if err != nil {
			return nil, err
		}
		config.Credentials.Spotify.merge(*creds)
	}

	return config, nil
}

// LoadCredentialsYAML reads a credential document holding client_id, client_secret and redirect_uri.
func LoadCredentialsYAML(path string) (*SpotifyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read credentials file: %v", ErrMissingCredentials, err)
	}

	var creds SpotifyConfig
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: failed to parse credentials file: %v", ErrInvalidConfig, err)
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required in %s", ErrMissingCredentials, path)
	}

	return &creds, nil
}

// merge copies non-empty client settings from other.
func (s *SpotifyConfig) merge(other SpotifyConfig) {
	if other.ClientID != "" {
		s.ClientID = other.ClientID
	}
	if other.ClientSecret != "" {
		s.ClientSecret = other.ClientSecret
	}
	if other.RedirectURI != "" {
		s.RedirectURI = other.RedirectURI
	}
}

// ApplyEnv loads the given dotenv files (missing files are skipped) and lets SPOTIFY_ID,
// SPOTIFY_SECRET and SPOTIFY_REDIRECT_URI override the configured client settings.
func ApplyEnv(config *Config, files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	config.Credentials.Spotify.merge(SpotifyConfig{
		ClientID:     os.Getenv("SPOTIFY_ID"),
		ClientSecret: os.Getenv("SPOTIFY_SECRET"),
		RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
	})
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(TimeRanges, c.Fetch.TimeRange) {
		return fmt.Errorf("%w: fetch.time_range must be one of %v, got %q", ErrInvalidConfig, TimeRanges, c.Fetch.TimeRange)
	}
	if c.Fetch.Limit < 1 || c.Fetch.Limit > 50 {
		return fmt.Errorf("%w: fetch.limit must be between 1 and 50, got %d", ErrInvalidConfig, c.Fetch.Limit)
	}
	if c.Fetch.SeedLimit < 0 {
		return fmt.Errorf("%w: fetch.seed_limit must be non-negative", ErrInvalidConfig)
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("%w: fetch.rate_limit must be non-negative", ErrInvalidConfig)
	}
	if !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q", ErrInvalidConfig, OutputFormats, c.Output.Format)
	}
	for _, s := range c.Output.Sinks {
		if !slices.Contains(SinkNames, s) {
			return fmt.Errorf("%w: unknown sink %q", ErrInvalidConfig, s)
		}
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes config to path as TOML. The file holds tokens, so it is only readable by the owner.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
