package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	tu "github.com/desertthunder/spotistats/internal/testing"
	"golang.org/x/oauth2"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			spotify := &tu.MockAccessor{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Spotify:    spotify,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with empty configPath", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "",
			})

			if runner.configPath != "" {
				t.Errorf("expected empty configPath, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "fetch", "playlists", "datasets", "runs", "serve"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %d to be %q, got %q", i, want[i], cmd.Name)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			config.Credentials.Spotify.ClientSecret = "test_secret"

			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: configPath,
			})

			token := &oauth2.Token{
				AccessToken:  "new_access_token",
				RefreshToken: "new_refresh_token",
			}

			err := runner.saveTokens(token)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}

			if loadedConfig.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Spotify.AccessToken)
			}
			if loadedConfig.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     nil,
				ConfigPath: "/tmp/test.toml",
			})

			runner.config = nil

			token := &oauth2.Token{AccessToken: "test"}
			err := runner.saveTokens(token)

			if err == nil {
				t.Fatal("expected error with nil config")
			}
			if !strings.Contains(err.Error(), "config is nil") {
				t.Errorf("expected nil config error, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "",
			})

			token := &oauth2.Token{
				AccessToken:  "new_token",
				RefreshToken: "new_refresh",
			}

			err := runner.saveTokens(token)
			if err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}

			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			config := shared.DefaultConfig()
			invalidPath := "/root/readonly/impossible/config.toml"

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: invalidPath,
			})

			token := &oauth2.Token{AccessToken: "test"}
			err := runner.saveTokens(token)

			if err == nil {
				t.Fatal("expected error with invalid path")
			}
			if !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.toml")

			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: configPath,
			})

			err := runner.saveTokens(nil)
			if err == nil {
				t.Fatal("expected error when Update fails with nil token")
			}
			if !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected invalid argument error in chain, got %v", err)
			}
		})

		t.Run("updates config reference", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "",
			})

			originalAccess := config.Credentials.Spotify.AccessToken
			token := &oauth2.Token{
				AccessToken:  "updated_access",
				RefreshToken: "updated_refresh",
			}

			err := runner.saveTokens(token)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config.Credentials.Spotify.AccessToken == originalAccess {
				t.Error("expected config reference to be updated")
			}
			if runner.config.Credentials.Spotify.AccessToken != "updated_access" {
				t.Errorf("expected updated access token in runner config")
			}
		})
	})
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func mockSpotify() *tu.MockAccessor {
	return &tu.MockAccessor{
		Responses: map[string]models.Record{
			"collection:top_artists": tu.PageRecord([]models.Record{
				tu.ArtistRecord("a1", 100, "indie"),
				tu.ArtistRecord("a2", 200, "jazz", "soul"),
			}, "", 2),
			"collection:playlists": tu.PageRecord([]models.Record{
				tu.PlaylistRecord("p1", "Road Trip", 12),
				tu.PlaylistRecord("p2", "Focus", 40),
			}, "", 2),
		},
	}
}

// runApp runs the root command with args against a config path that does not exist.
func runApp(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"spotistats",
		"--config", filepath.Join(dir, "config.toml"),
		"--env", filepath.Join(dir, "missing.env"),
	}
	return newApp(runner).Run(context.Background(), append(base, args...))
}

func TestCommands(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})

	t.Run("fetch", func(t *testing.T) {
		t.Run("writes datasets to the file sink", func(t *testing.T) {
			out := t.TempDir()
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: output})

			err := runApp(t, runner, "fetch", "--no-spinner", "--out", out, "--format", "csv", "top_artists")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tu.AssertFileExists(t, filepath.Join(out, "top_artists.csv"))
			csv := tu.MustReadFile(t, filepath.Join(out, "top_artists.csv"))
			if !strings.Contains(csv, "Artist a2") {
				t.Errorf("expected artist row in csv, got %s", csv)
			}
			if !strings.Contains(output.String(), "top_artists") || !strings.Contains(output.String(), "2 rows") {
				t.Errorf("expected summary with row count, got %s", output.String())
			}
		})

		t.Run("writes the playlist index after playlist datasets", func(t *testing.T) {
			out := t.TempDir()
			spotify := mockSpotify()
			spotify.Responses["playlist:p1"] = tu.PageRecord([]models.Record{
				tu.SavedTrackRecord(tu.TrackRecord("t1", "a1"), "2024-01-02T03:04:05Z", false),
			}, "", 1)
			spotify.Responses["playlist:p2"] = tu.PageRecord(nil, "", 0)

			runner := NewRunner(RunnerOpts{Spotify: spotify, Logger: logger, Output: &bytes.Buffer{}})
			err := runApp(t, runner, "fetch", "--no-spinner", "--enrich=false", "--out", out, "playlist_tracks")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			index, err := formatter.ReadPlaylistIndex(filepath.Join(out, PlaylistIndexFile))
			if err != nil {
				t.Fatalf("expected playlist index, got %v", err)
			}
			if id, ok := index.ID("Focus"); !ok || id != "p2" {
				t.Errorf("expected Focus to map to p2, got %q (%v)", id, ok)
			}
		})

		t.Run("records the run and datasets in sqlite", func(t *testing.T) {
			db := setupTestDB(t)
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: output, DB: db})

			if err := runApp(t, runner, "fetch", "--no-spinner", "--sink", "sqlite", "top_artists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			output.Reset()
			if err := runApp(t, runner, "datasets", "show", "--format", "csv", "top_artists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Artist a1") {
				t.Errorf("expected stored rows, got %s", output.String())
			}

			output.Reset()
			if err := runApp(t, runner, "runs"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), models.RunSucceeded) {
				t.Errorf("expected succeeded run, got %s", output.String())
			}
		})

		t.Run("marks the run failed when a dataset fails", func(t *testing.T) {
			db := setupTestDB(t)
			spotify := mockSpotify()
			spotify.Errors = map[string]error{"collection:top_artists": shared.ErrRateLimited}

			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: spotify, Logger: logger, Output: output, DB: db})

			err := runApp(t, runner, "fetch", "--no-spinner", "--sink", "sqlite", "top_artists")
			if !errors.Is(err, shared.ErrRateLimited) {
				t.Fatalf("expected rate limit error, got %v", err)
			}

			output.Reset()
			if err := runApp(t, runner, "runs", "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), models.RunFailed) {
				t.Errorf("expected failed run, got %s", output.String())
			}
		})

		t.Run("rejects unknown datasets", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: &bytes.Buffer{}})

			err := runApp(t, runner, "fetch", "--no-spinner", "top_albums")
			if !errors.Is(err, shared.ErrUnknownDataset) {
				t.Errorf("expected unknown dataset error, got %v", err)
			}
		})

		t.Run("rejects an out of range limit", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: &bytes.Buffer{}})

			err := runApp(t, runner, "fetch", "--no-spinner", "--limit", "51", "top_artists")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected invalid argument error, got %v", err)
			}
		})

		t.Run("requires authentication", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: logger, Output: &bytes.Buffer{}})

			err := runApp(t, runner, "fetch", "--no-spinner", "top_artists")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected not authenticated error, got %v", err)
			}
		})
	})

	t.Run("playlists", func(t *testing.T) {
		t.Run("prints JSON and saves the index", func(t *testing.T) {
			index := filepath.Join(t.TempDir(), "playlists.yml")
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: output})

			if err := runApp(t, runner, "playlists", "--json", "--save", index); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), `"name":"Road Trip"`) {
				t.Errorf("expected playlist JSON, got %s", output.String())
			}
			tu.AssertFileExists(t, index)
		})

		t.Run("prints a plain listing", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: output})

			if err := runApp(t, runner, "playlists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Found 2 playlists") {
				t.Errorf("expected playlist count, got %s", output.String())
			}
		})
	})

	t.Run("datasets", func(t *testing.T) {
		t.Run("list reports an empty store", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Logger: logger, Output: output, DB: setupTestDB(t)})

			if err := runApp(t, runner, "datasets", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "No datasets stored") {
				t.Errorf("expected empty message, got %s", output.String())
			}
		})

		t.Run("show needs a reference", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: logger, Output: &bytes.Buffer{}, DB: setupTestDB(t)})

			err := runApp(t, runner, "datasets", "show")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected missing argument error, got %v", err)
			}
		})

		t.Run("delete removes a stored dataset", func(t *testing.T) {
			db := setupTestDB(t)
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Spotify: mockSpotify(), Logger: logger, Output: output, DB: db})

			if err := runApp(t, runner, "fetch", "--no-spinner", "--sink", "sqlite", "top_artists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var id string
			if err := db.QueryRow(`SELECT id FROM datasets LIMIT 1`).Scan(&id); err != nil {
				t.Fatalf("failed to read dataset id: %v", err)
			}

			if err := runApp(t, runner, "datasets", "delete", id); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			err := runApp(t, runner, "datasets", "show", id)
			if !errors.Is(err, shared.ErrDatasetNotFound) {
				t.Errorf("expected dataset not found after delete, got %v", err)
			}
		})
	})

	t.Run("setup config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{Logger: logger, Output: &bytes.Buffer{}})
		app := newApp(runner)

		if err := app.Run(context.Background(), []string{"spotistats", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)

		err := newApp(runner).Run(context.Background(), []string{"spotistats", "--config", path, "setup", "config"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing file error, got %v", err)
		}
	})

	t.Run("auth status without a token", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: logger, Output: output})

		if err := runApp(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Not authenticated") {
			t.Errorf("expected not authenticated message, got %s", output.String())
		}
	})

	t.Run("parseDatasets", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			want    int
			wantErr error
		}{
			{name: "defaults to every dataset", args: nil, want: 6},
			{name: "drops duplicates", args: []string{"top_tracks", "top_tracks"}, want: 1},
			{name: "rejects unknown names", args: []string{"albums"}, wantErr: shared.ErrUnknownDataset},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := parseDatasets(tt.args)
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("expected %v, got %v", tt.wantErr, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d datasets, got %d", tt.want, len(got))
				}
			})
		}
	})
}
