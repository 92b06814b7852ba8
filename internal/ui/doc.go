// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses flat dataset tables:
//  1. [RunView] : Monitor a fetch run's progress updates
//  2. [ResultView] : Show which datasets were produced and which failed
//  3. [DatasetListView] : Pick a dataset, either stored or produced by the run
//  4. [TableView] : Scroll through the rows, shifting columns left and right
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the tasks engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
