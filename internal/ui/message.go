package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgDatasetsLoaded MsgKind = iota
	MsgDatasetLoaded
	MsgProgressUpdate
	MsgRunComplete
)

type datasetsLoaded struct {
	datasets []*models.Dataset
	err      error
}

type datasetLoaded struct {
	dataset *models.Dataset
	err     error
}

type runComplete struct {
	result *tasks.RunResult
	err    error
}

// datasetsLoadedMsg is the constructor for [MsgDatasetsLoaded]
func datasetsLoadedMsg(datasets []*models.Dataset, err error) Msg {
	return Msg{kind: MsgDatasetsLoaded, data: datasetsLoaded{datasets, err}}
}

// datasetLoadedMsg is the constructor for [MsgDatasetLoaded]
func datasetLoadedMsg(dataset *models.Dataset, err error) Msg {
	return Msg{kind: MsgDatasetLoaded, data: datasetLoaded{dataset, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runComplete{result, err}}
}
