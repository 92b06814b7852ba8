package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s Config written to %s\n", ui.OK("✓"), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in credentials.spotify client_id and client_secret (or set SPOTIFY_ID / SPOTIFY_SECRET)\n")
	r.writePlain("2. Run 'spotistats auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("%s Database ready at %s\n", ui.OK("✓"), r.config.Database.Path)
}
