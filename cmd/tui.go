package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/desertthunder/spotistats/internal/tasks"
	"github.com/desertthunder/spotistats/internal/ui"
)

// TUILogFile receives log output while the interactive UI owns the terminal.
const TUILogFile = "./tmp/spotistats-tui.log"

type loggerSetter interface {
	SetLogger(*log.Logger)
}

// runProgram runs model full screen with the runner's logs, and those of each of others,
// redirected to [TUILogFile].
func (r *Runner) runProgram(model tea.Model, others ...loggerSetter) (tea.Model, error) {
	fileLogger, err := shared.NewFileLogger(TUILogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())

	previous := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(previous)
	for _, o := range others {
		o.SetLogger(fileLogger)
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return final, nil
}

// runTUI drives a fetch from the interactive UI and returns its outcome once the UI exits.
func (r *Runner) runTUI(ctx context.Context, engine *tasks.StatsEngine, datasets []tasks.Dataset) (*tasks.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	final, err := r.runProgram(ui.NewRunModel(ctx, engine, datasets), engine)
	if err != nil {
		return nil, err
	}

	m, ok := final.(*ui.Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}

	result, runErr := m.Result()
	if result == nil && runErr == nil {
		return nil, fmt.Errorf("fetch interrupted before it finished: %w", context.Canceled)
	}
	return result, runErr
}
