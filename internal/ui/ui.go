package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/tasks"
	"github.com/mattn/go-runewidth"
)

const (
	maxColumnWidth = 30
	maxEvents      = 6
	defaultWidth   = 120
	defaultHeight  = 30
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DatasetListView ViewState = iota
	TableView
	RunView
	ResultView
)

// DatasetSource is the read side of the dataset store used by the browser.
type DatasetSource interface {
	List(criteria map[string]any) ([]*models.Dataset, error)
	Get(id string) (*models.Dataset, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       DatasetSource
	engine       tasks.Engine
	datasets     []tasks.Dataset
	width        int
	height       int
	list         list.Model
	hasList      bool
	table        table.Model
	current      datasetItem
	colOffset    int
	progressChan chan tasks.ProgressUpdate
	done         chan runComplete
	progress     tasks.ProgressUpdate
	events       []string
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

func newModel(ctx context.Context, view ViewState) *Model {
	return &Model{
		ctx:    ctx,
		view:   view,
		width:  defaultWidth,
		height: defaultHeight,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// NewPreviewModel creates a browser over stored datasets.
func NewPreviewModel(ctx context.Context, source DatasetSource) *Model {
	m := newModel(ctx, DatasetListView)
	m.source = source
	return m
}

// NewRunModel creates a model that runs engine over datasets, then browses what it produced.
func NewRunModel(ctx context.Context, engine tasks.Engine, datasets []tasks.Dataset) *Model {
	m := newModel(ctx, RunView)
	m.engine = engine
	m.datasets = datasets
	return m
}

// NewTableModel opens a single table directly, e.g. one read back from an exported JSON file.
func NewTableModel(ctx context.Context, name string, t *models.Table) *Model {
	m := newModel(ctx, TableView)
	m.current = producedItem(name, t)
	m.buildTable()
	return m
}

// Result returns the outcome of a run started by a model from [NewRunModel]. Both values are nil
// while the run is still going.
func (m *Model) Result() (*tasks.RunResult, error) {
	return m.result, m.err
}

// Init starts whatever the initial view needs.
func (m *Model) Init() tea.Cmd {
	switch m.view {
	case DatasetListView:
		return m.loadDatasets()
	case RunView:
		return m.startRun()
	default:
		return nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.hasList {
			m.list.SetSize(msg.Width-4, msg.Height-6)
		}
		if m.view == TableView {
			m.buildTable()
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case DatasetListView:
			return m.handleListKeys(msg)
		case TableView:
			return m.handleTableKeys(msg)
		case RunView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgDatasetsLoaded:
		data := msg.data.(datasetsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.datasets))
		for i, ds := range data.datasets {
			items[i] = storedItem(ds)
		}
		m.setList("Stored Datasets", items)
		return m, nil

	case MsgDatasetLoaded:
		data := msg.data.(datasetLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		item := storedItem(data.dataset)
		item.table = data.dataset.Table
		m.openTable(item)
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if update.Phase != tasks.FetchPage {
			m.events = append(m.events, update.Message)
			if len(m.events) > maxEvents {
				m.events = m.events[len(m.events)-maxEvents:]
			}
		}
		return m, m.waitForProgress()

	case MsgRunComplete:
		data := msg.data.(runComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case DatasetListView:
		return m.renderList()
	case TableView:
		return m.renderTable()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.err != nil && key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if !m.hasList {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.list.SelectedItem().(datasetItem); ok {
			if item.table != nil {
				m.openTable(item)
				return m, nil
			}
			return m, m.loadDataset(item.id)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.hasList {
			m.view = DatasetListView
		}
		return m, nil
	case key.Matches(msg, m.keys.left):
		if m.colOffset > 0 {
			m.colOffset--
			m.buildTable()
		}
		return m, nil
	case key.Matches(msg, m.keys.right):
		if m.colOffset < len(m.current.table.Columns)-1 {
			m.colOffset++
			m.buildTable()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.result == nil {
			return m, nil
		}
		var items []list.Item
		for _, d := range m.result.Datasets {
			if d.Err == nil && d.Table != nil {
				items = append(items, producedItem(string(d.Dataset), d.Table))
			}
		}
		if len(items) > 0 {
			m.setList("Datasets From This Run", items)
			m.view = DatasetListView
		}
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case DatasetListView:
		if m.hasList {
			m.list, cmd = m.list.Update(msg)
		}
	case TableView:
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m *Model) setList(title string, items []list.Item) {
	m.list = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-6)
	m.list.Title = title
	m.hasList = true
}

func (m *Model) openTable(item datasetItem) {
	m.current = item
	m.colOffset = 0
	m.buildTable()
	m.view = TableView
}

// buildTable lays out as many columns as fit the window, starting at colOffset.
func (m *Model) buildTable() {
	t := m.current.table
	if t == nil {
		return
	}

	cells := formatter.Cells(t, maxColumnWidth)
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = runewidth.StringWidth(col)
		for _, line := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(line[i]))
		}
		widths[i] = min(max(widths[i], 3), maxColumnWidth)
	}

	avail := m.width - 4
	end := m.colOffset
	used := 0
	for end < len(t.Columns) && (end == m.colOffset || used+widths[end]+2 <= avail) {
		used += widths[end] + 2
		end++
	}

	columns := make([]table.Column, 0, end-m.colOffset)
	for i := m.colOffset; i < end; i++ {
		columns = append(columns, table.Column{Title: t.Columns[i], Width: widths[i]})
	}

	rows := make([]table.Row, len(cells))
	for r, line := range cells {
		rows[r] = table.Row(line[m.colOffset:end])
	}

	cursor := m.table.Cursor()
	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 5)),
	)
	if cursor > 0 && cursor < len(rows) {
		m.table.SetCursor(cursor)
	}
}

// visibleColumns returns the first and last column index on screen, 1-based.
func (m *Model) visibleColumns() (int, int) {
	return m.colOffset + 1, m.colOffset + len(m.table.Columns())
}

func (m *Model) loadDatasets() tea.Cmd {
	return func() tea.Msg {
		datasets, err := m.source.List(nil)
		return datasetsLoadedMsg(datasets, err)
	}
}

func (m *Model) loadDataset(id string) tea.Cmd {
	return func() tea.Msg {
		ds, err := m.source.Get(id)
		return datasetLoadedMsg(ds, err)
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan runComplete, 1)

	progress, done := m.progressChan, m.done
	go func() {
		result, err := m.engine.Run(m.ctx, progress, m.datasets)
		done <- runComplete{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return runCompleteMsg(m.result, m.err)
		}

		update, ok := <-progress
		if !ok {
			c := <-done
			return runCompleteMsg(c.result, c.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList() string {
	if !m.hasList {
		return "Loading datasets..."
	}
	if len(m.list.Items()) == 0 {
		return fmt.Sprintf("%s\n\nNo datasets stored yet. Run `spotistats fetch` first.\n\n%s",
			styles.title.Render(m.list.Title), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.list.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTable() string {
	t := m.current.table
	first, last := m.visibleColumns()
	title := styles.title.Render(m.current.name)
	info := fmt.Sprintf("%d rows • columns %d-%d of %d", t.Len(), first, last, len(t.Columns))

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.left, m.keys.right}
	if m.hasList {
		helpKeys = append(helpKeys, m.keys.back)
	}
	helpKeys = append(helpKeys, m.keys.quit)

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, styles.help.Render(info), m.table.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Fetching Datasets")

	var status string
	switch m.progress.Phase {
	case tasks.FetchPage:
		status = m.progress.Message
	case tasks.EnrichTracks:
		status = "Joining genres and audio features..."
	case tasks.SeedRecommendations:
		status = "Collecting recommendations..."
	case tasks.WriteSink:
		status = fmt.Sprintf("Writing (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		status = "Working..."
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, e := range m.events {
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render(status))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Run stopped: %v", m.err)))
	} else {
		b.WriteString(styles.ok.Render("✓ Run complete"))
	}
	b.WriteString("\n\n")

	if m.result != nil {
		for _, d := range m.result.Datasets {
			if d.Err != nil {
				b.WriteString(styles.err.Render(fmt.Sprintf("  ✗ %s: %v", d.Dataset, d.Err)))
			} else {
				b.WriteString(fmt.Sprintf("  %s %s (%d rows)", styles.ok.Render("✓"), d.Dataset, d.Table.Len()))
			}
			b.WriteString("\n")
		}
		if n := len(m.result.Playlists); n > 0 {
			b.WriteString(styles.warn.Render(fmt.Sprintf("\n%d playlists read", n)))
			b.WriteString("\n")
		}
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}
