package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotistats/internal/models"
)

var _ list.Item = datasetItem{}

// datasetItem wraps a stored [models.Dataset] or a table produced by a run to implement [list.Item].
//
// Stored items carry an id and load their table on selection; run items carry the table itself.
type datasetItem struct {
	id      string
	name    string
	rows    int
	columns int
	when    string
	table   *models.Table
}

func storedItem(ds *models.Dataset) datasetItem {
	return datasetItem{
		id:      ds.ID,
		name:    ds.Name,
		rows:    ds.RowCount,
		columns: len(ds.Columns),
		when:    ds.CreatedAt.Local().Format("2006-01-02 15:04"),
	}
}

func producedItem(name string, table *models.Table) datasetItem {
	return datasetItem{name: name, rows: table.Len(), columns: len(table.Columns), when: "this run", table: table}
}

func (i datasetItem) FilterValue() string { return i.name }
func (i datasetItem) Title() string       { return i.name }
func (i datasetItem) Description() string {
	return fmt.Sprintf("%d rows • %d columns • %s", i.rows, i.columns, i.when)
}
