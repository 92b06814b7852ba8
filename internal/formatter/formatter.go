// package formatter renders dataset tables as JSON, CSV, Markdown or aligned plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// DefaultCellWidth caps text and markdown cells. CSV and JSON are never truncated.
const DefaultCellWidth = 40

// Extension returns the file extension used for format.
func Extension(format string) (string, error) {
	switch format {
	case "json":
		return "json", nil
	case "csv":
		return "csv", nil
	case "text":
		return "txt", nil
	case "markdown":
		return "md", nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Export renders table in the named format.
func Export(table *models.Table, format string, pretty bool) ([]byte, error) {
	switch format {
	case "json":
		return ExportToJSON(table, pretty)
	case "csv":
		return ExportToCSV(table)
	case "text":
		return ExportToText(table, DefaultCellWidth)
	case "markdown":
		return ExportToMarkdown(table, DefaultCellWidth)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToJSON encodes the table as {"columns": [...], "rows": [...]}, the form [models.DecodeTable] reads back.
func ExportToJSON(table *models.Table, pretty bool) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}
	return shared.MarshalJSON(table, pretty)
}

// ExportToCSV writes a header row of column names followed by one record per row.
func ExportToCSV(table *models.Table) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range table.Rows {
		record := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			record[i] = CellString(row[col])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText renders the table with space-padded columns, sized by display width so
// wide characters in track names keep the columns aligned.
func ExportToText(table *models.Table, maxWidth int) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}

	cells := Cells(table, maxWidth)
	widths := columnWidths(table.Columns, cells)

	var buf bytes.Buffer
	writeTextLine(&buf, table.Columns, widths)

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeTextLine(&buf, rule, widths)

	for _, line := range cells {
		writeTextLine(&buf, line, widths)
	}
	fmt.Fprintf(&buf, "\n%d rows\n", table.Len())

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the table as a GitHub-flavored Markdown table.
func ExportToMarkdown(table *models.Table, maxWidth int) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", shared.ErrInvalidArgument)
	}

	var buf bytes.Buffer
	buf.WriteString("| " + strings.Join(table.Columns, " | ") + " |\n")

	rule := make([]string, len(table.Columns))
	for i := range rule {
		rule[i] = "---"
	}
	buf.WriteString("| " + strings.Join(rule, " | ") + " |\n")

	for _, line := range Cells(table, maxWidth) {
		for i, c := range line {
			line[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(line, " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// Cells formats every row as strings, truncated to maxWidth display columns when maxWidth > 0.
func Cells(table *models.Table, maxWidth int) [][]string {
	out := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		line := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			s := strings.ReplaceAll(CellString(row[col]), "\n", " ")
			if maxWidth > 0 {
				s = runewidth.Truncate(s, maxWidth, "…")
			}
			line[i] = s
		}
		out[r] = line
	}
	return out
}

// CellString formats a single value. Lists are joined with ";" and nested objects become JSON.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ";")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = CellString(item)
		}
		return strings.Join(parts, ";")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func columnWidths(columns []string, cells [][]string) []int {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = runewidth.StringWidth(col)
	}
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	return widths
}

func writeTextLine(buf *bytes.Buffer, cells []string, widths []int) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteString("  ")
		}
		if i == len(cells)-1 {
			buf.WriteString(c)
		} else {
			buf.WriteString(runewidth.FillRight(c, widths[i]))
		}
	}
	buf.WriteByte('\n')
}

// WriteExport writes table to {dir}/{name}.{ext}, creating dir when needed, and returns the path.
func WriteExport(table *models.Table, dir, name, format string, pretty bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}

	ext, err := Extension(format)
	if err != nil {
		return "", err
	}

	data, err := Export(table, format, pretty)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, name+"."+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// PlaylistIndex lists the playlists a run pulled tracks from.
type PlaylistIndex struct {
	Playlists []models.Playlist `yaml:"playlists"`
}

// ID returns the id of the first playlist called name.
func (p PlaylistIndex) ID(name string) (string, bool) {
	for _, pl := range p.Playlists {
		if pl.Name == name {
			return pl.ID, true
		}
	}
	return "", false
}

// WritePlaylistIndex writes playlists as YAML to path.
func WritePlaylistIndex(path string, playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	data, err := yaml.Marshal(PlaylistIndex{Playlists: playlists})
	if err != nil {
		return fmt.Errorf("failed to encode playlist index: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write playlist index: %w", err)
	}
	return nil
}

// ReadPlaylistIndex loads an index written by [WritePlaylistIndex].
func ReadPlaylistIndex(path string) (*PlaylistIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist index: %w", err)
	}

	var index PlaylistIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: failed to parse playlist index: %v", shared.ErrDataShape, err)
	}
	return &index, nil
}
