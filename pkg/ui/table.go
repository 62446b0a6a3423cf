package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn describes one column. Width is a minimum; Align is "left"
// (the default) or "right".
type TableColumn struct {
	Header string
	Width  int
	Align  string
}

// Table is a static, fully rendered table for one-shot command output.
// Interactive views use bubbles/table instead.
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

func NewTable(columns []TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row. Cells beyond the last column are dropped.
func (t *Table) AddRow(cells []string) {
	t.Rows = append(t.Rows, cells)
}

// Render lays the table out with every column as wide as its widest cell,
// measured in terminal cells
func (t *Table) Render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = max(col.Width, lipgloss.Width(col.Header))
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder

	header := make([]string, len(t.Columns))
	rule := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = t.cell(i, col.Header, widths[i])
		rule[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(styleTableHeader.Render(strings.Join(header, "  ")))
	b.WriteString("\n")
	b.WriteString(styleTableRule.Render(strings.Join(rule, "  ")))
	b.WriteString("\n")

	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			var value string
			if i < len(row) {
				value = row[i]
			}
			cells[i] = t.cell(i, value, widths[i])
		}
		b.WriteString(styleTableRow.Render(strings.Join(cells, "  ")))
		b.WriteString("\n")
	}

	return b.String()
}

func (t *Table) cell(col int, value string, width int) string {
	align := lipgloss.Left
	if t.Columns[col].Align == "right" {
		align = lipgloss.Right
	}
	return lipgloss.PlaceHorizontal(width, align, value)
}
