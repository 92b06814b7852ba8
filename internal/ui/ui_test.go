package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/tasks"
)

type mockSource struct {
	datasets []*models.Dataset
	err      error
	gets     []string
}

func (m *mockSource) List(criteria map[string]any) ([]*models.Dataset, error) {
	return m.datasets, m.err
}

func (m *mockSource) Get(id string) (*models.Dataset, error) {
	m.gets = append(m.gets, id)
	for _, ds := range m.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, errors.New("not found")
}

type mockEngine struct {
	result  *tasks.RunResult
	err     error
	updates []tasks.ProgressUpdate
}

func (e *mockEngine) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, datasets []tasks.Dataset) (*tasks.RunResult, error) {
	for _, u := range e.updates {
		progress <- u
	}
	return e.result, e.err
}

func (e *mockEngine) Fetch(ctx context.Context, progress chan<- tasks.ProgressUpdate, ds tasks.Dataset) (*models.Table, error) {
	return nil, nil
}

func (e *mockEngine) Playlists(ctx context.Context, progress chan<- tasks.ProgressUpdate) ([]models.Playlist, error) {
	return nil, nil
}

func wideTable(columns int) *models.Table {
	names := make([]string, columns)
	row := models.Row{}
	for i := range names {
		names[i] = "column_" + string(rune('a'+i))
		row[names[i]] = strings.Repeat("x", 20)
	}
	t := models.NewTable(names...)
	t.Append(row)
	t.Append(row)
	return t
}

func storedDataset(id, name string) *models.Dataset {
	t := models.NewTable("id", "name")
	t.Append(models.Row{"id": "a1", "name": "Artist One"})
	return &models.Dataset{ID: id, Name: name, Columns: t.Columns, RowCount: 1, CreatedAt: time.Now(), Table: t}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestPreviewModel(t *testing.T) {
	t.Run("loads and opens a stored dataset", func(t *testing.T) {
		source := &mockSource{datasets: []*models.Dataset{storedDataset("d1", "top_artists")}}
		m := NewPreviewModel(context.Background(), source)

		msg := m.Init()()
		m.Update(msg)
		if !m.hasList || len(m.list.Items()) != 1 {
			t.Fatalf("expected one list item, got %v", m.list.Items())
		}

		_, cmd := m.Update(keyPress("enter"))
		if cmd == nil {
			t.Fatal("expected load command")
		}
		m.Update(cmd())

		if len(source.gets) != 1 || source.gets[0] != "d1" {
			t.Errorf("expected Get(d1), got %v", source.gets)
		}
		if m.view != TableView {
			t.Fatalf("expected table view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Artist One") {
			t.Errorf("table view missing row:\n%s", m.View())
		}

		m.Update(keyPress("esc"))
		if m.view != DatasetListView {
			t.Errorf("esc should return to the list, got %v", m.view)
		}
	})

	t.Run("list error", func(t *testing.T) {
		m := NewPreviewModel(context.Background(), &mockSource{err: errors.New("db locked")})
		m.Update(m.Init()())

		if !strings.Contains(m.View(), "db locked") {
			t.Errorf("expected error in view, got %s", m.View())
		}
		if _, cmd := m.Update(keyPress("q")); cmd == nil {
			t.Error("q should quit")
		}
	})

	t.Run("empty store", func(t *testing.T) {
		m := NewPreviewModel(context.Background(), &mockSource{})
		m.Update(m.Init()())

		if !strings.Contains(m.View(), "No datasets stored yet") {
			t.Errorf("unexpected view %s", m.View())
		}
	})
}

func TestTableModel(t *testing.T) {
	t.Run("fits columns to width and shifts", func(t *testing.T) {
		m := NewTableModel(context.Background(), "saved_tracks", wideTable(10))
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

		first, last := m.visibleColumns()
		if first != 1 || last >= 10 {
			t.Fatalf("expected a partial column window, got %d-%d", first, last)
		}

		m.Update(keyPress("l"))
		if first, _ := m.visibleColumns(); first != 2 {
			t.Errorf("expected offset to move right, got first=%d", first)
		}

		m.Update(keyPress("h"))
		m.Update(keyPress("h"))
		if first, _ := m.visibleColumns(); first != 1 {
			t.Errorf("offset must not go below the first column, got %d", first)
		}

		if !strings.Contains(m.View(), "2 rows") {
			t.Errorf("expected row count in view:\n%s", m.View())
		}
	})

	t.Run("esc without a list stays put", func(t *testing.T) {
		m := NewTableModel(context.Background(), "x", wideTable(2))
		m.Update(keyPress("esc"))
		if m.view != TableView {
			t.Errorf("expected table view, got %v", m.view)
		}
	})
}

func TestRunModel(t *testing.T) {
	t.Run("streams progress then browses results", func(t *testing.T) {
		table := models.NewTable("id")
		table.Append(models.Row{"id": "t1"})

		engine := &mockEngine{
			updates: []tasks.ProgressUpdate{
				{Phase: tasks.FetchDataset, Message: "[1/2] Fetching top_tracks..."},
			},
			result: &tasks.RunResult{Datasets: []tasks.DatasetResult{
				{Dataset: tasks.TopTracks, Table: table},
				{Dataset: tasks.SavedTracks, Err: errors.New("rate limited")},
			}},
		}

		m := NewRunModel(context.Background(), engine, []tasks.Dataset{tasks.TopTracks, tasks.SavedTracks})

		cmd := m.Init()
		for i := 0; cmd != nil && m.view == RunView && i < 10; i++ {
			_, cmd = m.Update(cmd())
		}

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if len(m.events) != 1 {
			t.Errorf("expected one progress event, got %v", m.events)
		}

		view := m.View()
		if !strings.Contains(view, "top_tracks (1 rows)") || !strings.Contains(view, "saved_tracks: rate limited") {
			t.Errorf("unexpected result view:\n%s", view)
		}

		m.Update(keyPress("enter"))
		if m.view != DatasetListView || len(m.list.Items()) != 1 {
			t.Fatalf("expected list of produced datasets, got view %v", m.view)
		}

		m.Update(keyPress("enter"))
		if m.view != TableView || m.current.name != "top_tracks" {
			t.Errorf("expected produced table to open directly, got %v %q", m.view, m.current.name)
		}
	})

	t.Run("run error", func(t *testing.T) {
		m := NewRunModel(context.Background(), &mockEngine{err: errors.New("not authenticated")}, nil)

		cmd := m.Init()
		m.Update(cmd())

		if m.view != ResultView || !strings.Contains(m.View(), "not authenticated") {
			t.Errorf("expected failed run view, got %s", m.View())
		}
	})
}
