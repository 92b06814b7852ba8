// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/spotistats/internal/tasks"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Spotify authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify using OAuth2 and save tokens to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored token and the account it belongs to",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "time-range",
			Usage: "Top artists/tracks window: short_term, medium_term or long_term",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Page size for collection requests (1-50)",
		},
		&cli.BoolFlag{
			Name:  "enrich",
			Usage: "Join artist genres and audio features onto track datasets",
		},
		&cli.BoolFlag{
			Name:  "memoize-genres",
			Usage: "Look each artist up once per dataset instead of once per row",
		},
		&cli.BoolFlag{
			Name:  "all-playlists",
			Usage: "Read every page of the playlist list instead of only the first",
		},
	}
}

// fetchCommand pulls datasets and writes them to the configured sinks.
func fetchCommand(r *Runner) *cli.Command {
	flags := append(fetchFlags(),
		&cli.StringSliceFlag{
			Name:  "seed",
			Usage: "Recommendation seed track id (repeatable); defaults to the first top tracks",
		},
		&cli.IntFlag{
			Name:  "seed-limit",
			Usage: "Number of top tracks used as recommendation seeds",
		},
		&cli.BoolFlag{
			Name:  "continue-on-error",
			Usage: "Record a failed dataset and move on to the next one",
		},
		&cli.StringSliceFlag{
			Name:  "sink",
			Usage: "Destination: file, sqlite or mongo (repeatable)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "File sink format: json, csv, text or markdown",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "File sink directory",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Indent JSON output",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Follow progress in the interactive UI and browse the results",
		},
		&cli.BoolFlag{
			Name:  "no-spinner",
			Usage: "Disable the progress spinner",
		},
	)

	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch datasets: " + datasetNames(),
		ArgsUsage: "[dataset...]",
		Flags:     flags,
		Action:    r.Fetch,
	}
}

// playlistsCommand lists playlists and writes the name to id index.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all-playlists",
				Usage: "Read every page instead of only the first",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Write the playlist index as YAML to this path",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// datasetsCommand inspects stored datasets.
func datasetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "datasets",
		Aliases: []string{"ds"},
		Usage:   "Inspect datasets stored by the sqlite sink",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored datasets, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Only datasets with this name"},
					&cli.StringFlag{Name: "run", Usage: "Only datasets from this run id"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.DatasetsList,
			},
			{
				Name:  "show",
				Usage: "Print a stored dataset by name (latest) or id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "ref"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "json, csv, text or markdown",
						Value:   "text",
					},
					&cli.BoolFlag{Name: "pretty", Usage: "Indent JSON output"},
				},
				Action: r.DatasetsShow,
			},
			{
				Name:  "preview",
				Usage: "Browse stored datasets, or an exported JSON file, in the interactive UI",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Action: r.DatasetsPreview,
			},
			{
				Name:  "delete",
				Usage: "Delete a stored dataset by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.DatasetsDelete,
			},
		},
	}
}

// runsCommand shows run history.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recent fetch runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Number of runs to show", Value: 10},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Runs,
	}
}

// serveCommand starts the read-only dataset API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve stored datasets over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, defaults to [server] host and port",
			},
		},
		Action: r.Serve,
	}
}

func datasetNames() string {
	names := ""
	for i, ds := range tasks.Datasets {
		if i > 0 {
			names += ", "
		}
		names += string(ds)
	}
	return names
}
