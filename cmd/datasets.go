package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/repositories"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/tasks"
	"github.com/desertthunder/spotistats/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) datasetRepository() (*repositories.DatasetRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewDatasetRepository(db), nil
}

// DatasetsList prints stored dataset summaries, newest first.
func (r *Runner) DatasetsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.datasetRepository()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if name := cmd.String("name"); name != "" {
		criteria["name"] = name
	}
	if runID := cmd.String("run"); runID != "" {
		criteria["run_id"] = runID
	}

	list, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	if len(list) == 0 {
		return r.writePlain("No datasets stored. Run 'spotistats fetch --sink sqlite' first.\n")
	}

	summary := &models.Table{Columns: []string{"id", "name", "rows", "columns", "run_id", "created_at"}}
	for _, ds := range list {
		summary.Rows = append(summary.Rows, models.Row{
			"id":         ds.ID,
			"name":       ds.Name,
			"rows":       ds.RowCount,
			"columns":    len(ds.Columns),
			"run_id":     ds.RunID,
			"created_at": ds.CreatedAt.Local().Format(time.DateTime),
		})
	}

	text, err := formatter.ExportToText(summary, formatter.DefaultCellWidth)
	if err != nil {
		return err
	}
	return r.writePlain("%s", text)
}

// lookupDataset resolves ref as a dataset name (latest snapshot) or, failing that, as an id.
func lookupDataset(repo *repositories.DatasetRepository, ref string) (*models.Dataset, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: dataset name or id is required", shared.ErrMissingArgument)
	}
	if _, err := tasks.ParseDataset(ref); err == nil {
		return repo.Latest(ref)
	}
	return repo.Get(ref)
}

// DatasetsShow prints one stored dataset in the requested format.
func (r *Runner) DatasetsShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.datasetRepository()
	if err != nil {
		return err
	}

	ds, err := lookupDataset(repo, cmd.StringArg("ref"))
	if err != nil {
		return err
	}

	out, err := formatter.Export(ds.Table, cmd.String("format"), cmd.Bool("pretty"))
	if err != nil {
		return err
	}
	r.writePlain("%s", out)
	if !strings.HasSuffix(string(out), "\n") {
		r.writePlain("\n")
	}
	return nil
}

// DatasetsDelete soft-deletes a stored dataset.
func (r *Runner) DatasetsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: dataset id is required", shared.ErrMissingArgument)
	}

	repo, err := r.datasetRepository()
	if err != nil {
		return err
	}
	if err := repo.Delete(id); err != nil {
		return err
	}

	r.logger.Info("dataset deleted", "id", id)
	return r.writePlain("%s Deleted dataset %s\n", ui.OK("✓"), id)
}

// DatasetsPreview opens an exported JSON file, or the stored datasets, in the interactive UI.
func (r *Runner) DatasetsPreview(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.StringArg("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		table, err := models.DecodeTable(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		_, err = r.runProgram(ui.NewTableModel(ctx, name, table))
		return err
	}

	repo, err := r.datasetRepository()
	if err != nil {
		return err
	}
	_, err = r.runProgram(ui.NewPreviewModel(ctx, repo))
	return err
}

// Runs prints recent fetch runs, newest first.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	if len(runs) == 0 {
		return r.writePlain("No runs recorded.\n")
	}

	for _, run := range runs {
		mark := ui.OK("✓")
		switch run.Status {
		case models.RunFailed:
			mark = ui.Err("✗")
		case models.RunRunning:
			mark = ui.Warn("…")
		}

		r.writePlain("%s %s  %s  %s\n", mark, run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status)
		r.writePlain("   Datasets: %s\n", strings.Join(run.Datasets, ", "))
		if d := run.Duration(); d > 0 {
			r.writePlain("   Duration: %s\n", d.Round(time.Millisecond))
		}
		if run.Error != "" {
			r.writePlain("   Error: %s\n", run.Error)
		}
	}
	return nil
}
