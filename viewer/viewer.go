// Package viewer is the interactive dependency report table.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"dependency-checker/projector"
	"dependency-checker/reporttable"
	"dependency-checker/types/scanreport"
)

type mode int

const (
	modeBrowsing mode = iota
	modeSearching
	modePicking
)

const defaultColumnWidth = 20

type Options struct {
	// ReportPath is loaded on start when set.
	ReportPath string
	// StartDir is where the file picker opens.
	StartDir string
	// ExportDir receives CSV exports.
	ExportDir string
}

// App is the viewer state. Every handler works on this value; there is no
// package level state.
type App struct {
	ctx      context.Context
	resolver projector.VersionResolver
	opts     Options

	rows   *reporttable.Table
	grid   table.Model
	search textinput.Model
	picker filepicker.Model
	help   help.Model
	keys   keyMap

	mode       mode
	errMsg     string
	status     string
	reportPath string

	// generation identifies the current load; results of older loads are
	// dropped.
	generation int
	pending    []scanreport.FileEntry
	next       int
	loading    bool

	width  int
	height int
}

type (
	reportLoadedMsg struct {
		path   string
		report *scanreport.ScanReport
	}
	loadFailedMsg struct {
		path string
		err  error
	}
	rowResolvedMsg struct {
		generation int
		index      int
		row        scanreport.DisplayRow
	}
	exportedMsg struct {
		filename string
		err      error
	}
)

func New(ctx context.Context, resolver projector.VersionResolver, opts Options) App {
	columns := make([]table.Column, len(scanreport.Columns))
	for i, title := range scanreport.Columns {
		columns[i] = table.Column{Title: title, Width: defaultColumnWidth}
	}
	grid := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	grid.SetStyles(tableStyles())

	search := textinput.New()
	search.Placeholder = "search all columns"
	search.Prompt = "/ "
	search.CharLimit = 200
	search.Width = 50

	picker := filepicker.New()
	picker.AllowedTypes = []string{".json"}
	picker.CurrentDirectory = opts.StartDir
	if picker.CurrentDirectory == "" {
		picker.CurrentDirectory = "."
	}

	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	return App{
		ctx:      ctx,
		resolver: resolver,
		opts:     opts,
		rows:     reporttable.New(),
		grid:     grid,
		search:   search,
		picker:   picker,
		help:     help.New(),
		keys:     defaultKeys,
		status:   "Press o to open a JSON report.",
	}
}

func (m App) Init() tea.Cmd {
	if m.opts.ReportPath != "" {
		return loadReportCmd(m.opts.ReportPath)
	}
	return nil
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case reportLoadedMsg:
		return m.startResolving(msg)

	case loadFailedMsg:
		return m.loadFailed(msg), nil

	case rowResolvedMsg:
		return m.rowResolved(msg)

	case exportedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Failed to export CSV: %v", msg.err)
		} else {
			m.status = successStyle.Render("Exported " + msg.filename)
		}
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.errMsg != "" {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Dismiss) {
			m.errMsg = ""
		}
		return m, nil
	}

	switch m.mode {
	case modeSearching:
		return m.updateSearching(msg)
	case modePicking:
		return m.updatePicking(msg)
	default:
		return m.updateBrowsing(msg)
	}
}

func (m App) updateBrowsing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Open):
			m.mode = modePicking
			return m, m.picker.Init()
		case key.Matches(keyMsg, m.keys.Search):
			m.mode = modeSearching
			m.grid.Blur()
			return m, m.search.Focus()
		case key.Matches(keyMsg, m.keys.Sort):
			col := int(keyMsg.String()[0] - '1')
			return m.sortColumn(col), nil
		case key.Matches(keyMsg, m.keys.Export):
			return m, exportCmd(m.opts.ExportDir, m.rows.Records())
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m App) updateSearching(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			m = m.runSearch(m.search.Value())
			m.mode = modeBrowsing
			m.search.Blur()
			m.grid.Focus()
			return m, nil
		case tea.KeyEsc:
			m.mode = modeBrowsing
			m.search.Blur()
			m.grid.Focus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m App) updatePicking(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.mode = modeBrowsing
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
		m.mode = modeBrowsing
		return m, loadReportCmd(path)
	}
	if didSelect, path := m.picker.DidSelectDisabledFile(msg); didSelect {
		m.status = fmt.Sprintf("%s is not a .json file", filepath.Base(path))
	}
	return m, cmd
}

// startResolving replaces the table contents and resolves the first entry.
// The remaining entries follow one at a time, in file order.
func (m App) startResolving(msg reportLoadedMsg) (tea.Model, tea.Cmd) {
	log.Printf("viewer:: JSON loaded successfully from %s, checking installed & latest versions...", msg.path)
	m.generation++
	m.rows.Clear()
	m.reportPath = msg.path
	m.pending = msg.report.Files
	m.next = 0
	m.loading = len(m.pending) > 0
	m.refreshGrid()
	if !m.loading {
		m.status = "Report has no files."
		return m, nil
	}
	m.status = m.progress()
	return m, m.resolveNext()
}

func (m App) loadFailed(msg loadFailedMsg) App {
	if errors.Is(msg.err, projector.ErrInvalidFormat) {
		// The table is cleared before the shape check, so nothing of the
		// previous report survives.
		m.generation++
		m.rows.Clear()
		m.pending = nil
		m.loading = false
		m.refreshGrid()
		m.errMsg = "Invalid JSON format! No 'files' key found."
		m.status = ""
	} else {
		m.errMsg = fmt.Sprintf("Failed to load JSON: %v", msg.err)
	}
	log.Printf("viewer:: loading %s failed: %v", msg.path, msg.err)
	return m
}

func (m App) rowResolved(msg rowResolvedMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.generation {
		return m, nil
	}
	m.rows.Append(msg.row)
	m.refreshGrid()
	m.next = msg.index + 1
	if m.next < len(m.pending) {
		m.status = m.progress()
		return m, m.resolveNext()
	}
	m.loading = false
	m.pending = nil
	m.status = fmt.Sprintf("Loaded %d rows from %s", m.rows.Len(), m.reportPath)
	return m, nil
}

func (m App) progress() string {
	return fmt.Sprintf("Checking installed & latest versions... %d/%d", m.next, len(m.pending))
}

func (m App) resolveNext() tea.Cmd {
	ctx, resolver := m.ctx, m.resolver
	generation, index, entry := m.generation, m.next, m.pending[m.next]
	return func() tea.Msg {
		return rowResolvedMsg{
			generation: generation,
			index:      index,
			row:        projector.ProjectEntry(ctx, entry, resolver),
		}
	}
}

func (m App) sortColumn(col int) App {
	if err := m.rows.Sort(col); err != nil {
		m.status = err.Error()
		return m
	}
	m.refreshGrid()
	return m
}

func (m App) runSearch(term string) App {
	matches := m.rows.Search(term)
	m.refreshGrid()
	if focus := m.rows.Focus(); focus >= 0 {
		m.grid.SetCursor(focus)
	}
	if term == "" {
		m.status = "Selection cleared."
	} else {
		m.status = fmt.Sprintf("%d rows match %q", matches, term)
	}
	return m
}

// refreshGrid copies the table state into the widget.
func (m *App) refreshGrid() {
	columns := m.grid.Columns()
	sortedBy, descending, sorted := m.rows.SortedBy()
	for i := range columns {
		title := scanreport.Columns[i]
		if sorted && i == sortedBy {
			if descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		columns[i].Title = title
	}
	m.grid.SetColumns(columns)

	gridRows := make([]table.Row, m.rows.Len())
	for i, row := range m.rows.Rows() {
		values := row.Values()
		if m.rows.IsSelected(i) {
			values[0] = selectedMarker + values[0]
		}
		gridRows[i] = table.Row(values)
	}
	m.grid.SetRows(gridRows)
}

func (m *App) resize() {
	if m.width <= 0 {
		return
	}
	width := (m.width - 2*len(scanreport.Columns)) / len(scanreport.Columns)
	if width < 8 {
		width = 8
	}
	columns := m.grid.Columns()
	for i := range columns {
		columns[i].Width = width
	}
	m.grid.SetColumns(columns)
	m.grid.SetWidth(m.width)
	if m.height > 10 {
		m.grid.SetHeight(m.height - 8)
		m.picker.Height = m.height - 6
	}
	m.help.Width = m.width
}

func (m App) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" Dependency Checker"))
	if m.reportPath != "" {
		s.WriteString(statusStyle.Render("  " + m.reportPath))
	}
	s.WriteString("\n\n")

	if m.errMsg != "" {
		s.WriteString(errorBox.Render(errorTitle.Render("Error") + "\n" + m.errMsg + "\n\n" + statusStyle.Render("press esc to close")))
		s.WriteString("\n\n")
	}

	switch m.mode {
	case modePicking:
		s.WriteString(searchStyle.Render("Select a JSON report (esc to cancel)") + "\n")
		s.WriteString(m.picker.View())
		return s.String()
	case modeSearching:
		s.WriteString(m.search.View() + "\n\n")
	}

	s.WriteString(m.grid.View())
	s.WriteString("\n")
	s.WriteString(statusStyle.Render(m.status))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

// Table exposes the row state, mainly for tests and headless callers.
func (m App) Table() *reporttable.Table { return m.rows }

func loadReportCmd(path string) tea.Cmd {
	return func() tea.Msg {
		report, err := projector.LoadReport(path)
		if err != nil {
			return loadFailedMsg{path: path, err: err}
		}
		return reportLoadedMsg{path: path, report: report}
	}
}

func exportCmd(dir string, records [][]string) tea.Cmd {
	return func() tea.Msg {
		filename := filepath.Join(dir, fmt.Sprintf("%s-dependency-report.csv", time.Now().Format("20060102150405")))
		return exportedMsg{filename: filename, err: reporttable.WriteCSV(filename, records)}
	}
}

// Run starts the full screen viewer and blocks until it exits.
func Run(ctx context.Context, resolver projector.VersionResolver, opts Options) error {
	p := tea.NewProgram(New(ctx, resolver, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
