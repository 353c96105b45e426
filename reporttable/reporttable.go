// Package reporttable holds the rows shown by the viewer together with their
// sort and selection state.
package reporttable

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"dependency-checker/types/scanreport"
)

type item struct {
	row      scanreport.DisplayRow
	values   []string
	selected bool
}

type Table struct {
	items []item
	// reverse holds the direction the next click on a column sorts in.
	reverse    map[int]bool
	sortedBy   int
	descending bool
	focus      int
	fold       cases.Caser
}

func New() *Table {
	return &Table{
		reverse:  make(map[int]bool),
		sortedBy: -1,
		focus:    -1,
		fold:     cases.Fold(),
	}
}

func (t *Table) Len() int { return len(t.items) }

// Clear drops every row. Per-column sort toggles are kept.
func (t *Table) Clear() {
	t.items = nil
	t.focus = -1
}

func (t *Table) Append(row scanreport.DisplayRow) {
	t.items = append(t.items, item{row: row, values: row.Values()})
}

// Replace clears the table and inserts rows in order.
func (t *Table) Replace(rows []scanreport.DisplayRow) {
	t.Clear()
	for _, row := range rows {
		t.Append(row)
	}
}

func (t *Table) Rows() []scanreport.DisplayRow {
	rows := make([]scanreport.DisplayRow, len(t.items))
	for i, it := range t.items {
		rows[i] = it.row
	}
	return rows
}

func (t *Table) Row(i int) scanreport.DisplayRow { return t.items[i].row }

// Sort orders the rows by the string value of column col. The first call for
// a column sorts ascending, each further call flips that column's direction.
// Ties keep their relative order.
func (t *Table) Sort(col int) error {
	if col < 0 || col >= len(scanreport.Columns) {
		return fmt.Errorf("no such column: %d", col)
	}
	descending := t.reverse[col]
	sort.SliceStable(t.items, func(i, j int) bool {
		if descending {
			return t.items[i].values[col] > t.items[j].values[col]
		}
		return t.items[i].values[col] < t.items[j].values[col]
	})
	t.reverse[col] = !descending
	t.sortedBy = col
	t.descending = descending
	t.focus = -1
	return nil
}

// SortedBy reports the column and direction of the last sort.
func (t *Table) SortedBy() (col int, descending bool, ok bool) {
	return t.sortedBy, t.descending, t.sortedBy >= 0
}

// Search selects every row with a cell containing term, ignoring case, and
// clears the selection of every other row. An empty term clears all
// selections. It returns the number of selected rows.
func (t *Table) Search(term string) int {
	needle := t.fold.String(term)
	matches := 0
	t.focus = -1
	for i := range t.items {
		t.items[i].selected = needle != "" && t.matches(i, needle)
		if t.items[i].selected {
			matches++
			t.focus = i
		}
	}
	return matches
}

func (t *Table) matches(i int, needle string) bool {
	for _, v := range t.items[i].values {
		if strings.Contains(t.fold.String(v), needle) {
			return true
		}
	}
	return false
}

func (t *Table) IsSelected(i int) bool { return t.items[i].selected }

// Selected returns the indexes of the selected rows in display order.
func (t *Table) Selected() []int {
	var selected []int
	for i, it := range t.items {
		if it.selected {
			selected = append(selected, i)
		}
	}
	return selected
}

// Focus is the index of the last row matched by Search, or -1.
func (t *Table) Focus() int { return t.focus }

// Records returns the header followed by every row, in display order.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.items)+1)
	records = append(records, append([]string(nil), scanreport.Columns...))
	for _, it := range t.items {
		records = append(records, append([]string(nil), it.values...))
	}
	return records
}
