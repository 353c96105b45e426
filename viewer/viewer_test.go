package viewer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dependency-checker/types/scanreport"
)

type fakeResolver struct {
	versions map[string]string
	calls    []string
}

func (f *fakeResolver) ResolveLatestVersion(_ context.Context, packageName string) string {
	f.calls = append(f.calls, packageName)
	if v, ok := f.versions[packageName]; ok {
		return v
	}
	return scanreport.NotAvailable
}

func newTestApp(t *testing.T, resolver *fakeResolver) App {
	t.Helper()
	return New(context.Background(), resolver, Options{ExportDir: t.TempDir()})
}

// drive feeds the result of each command back into the model until no
// command is left.
func drive(t *testing.T, m App, cmd tea.Cmd) App {
	t.Helper()
	for steps := 0; cmd != nil; steps++ {
		require.Less(t, steps, 100, "command chain did not settle")
		model, next := m.Update(cmd())
		m = model.(App)
		cmd = next
	}
	return m
}

func press(t *testing.T, m App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, _ := m.Update(msg)
		m = model.(App)
	}
	return m
}

func load(t *testing.T, m App, path string) App {
	t.Helper()
	return drive(t, m, loadReportCmd(path))
}

func TestLoadResolvesRowsInFileOrder(t *testing.T) {
	resolver := &fakeResolver{versions: map[string]string{
		"Newtonsoft.Json": "13.0.3",
		"requests":        "2.31.0",
	}}
	m := load(t, newTestApp(t, resolver), "testdata/report.json")

	rows := m.Table().Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "src/app/packages.config", rows[0].FilePath)
	assert.Equal(t, "13.0.3", rows[0].UpdateStatus)
	assert.Equal(t, scanreport.UpToDate, rows[1].UpdateStatus)
	assert.Equal(t, scanreport.NotAvailable, rows[2].PackageName)
	assert.Equal(t, []string{"Newtonsoft.Json", "requests", scanreport.NotAvailable}, resolver.calls)
	assert.False(t, m.loading)
	assert.Contains(t, m.status, "Loaded 3 rows")
	assert.Len(t, m.grid.Rows(), 3)
}

func TestInitLoadsReportPath(t *testing.T) {
	resolver := &fakeResolver{}
	m := New(context.Background(), resolver, Options{ReportPath: "testdata/report.json"})
	m = drive(t, m, m.Init())
	assert.Equal(t, 3, m.Table().Len())
}

func TestInvalidFormatClearsTable(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")
	require.Equal(t, 3, m.Table().Len())

	m = load(t, m, "testdata/no_files.json")
	assert.Zero(t, m.Table().Len())
	assert.Empty(t, m.grid.Rows())
	assert.Equal(t, "Invalid JSON format! No 'files' key found.", m.errMsg)
	assert.Contains(t, m.View(), "Invalid JSON format!")
}

func TestParseFailureKeepsPreviousRows(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"files": [`), 0o644))

	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")
	m = load(t, m, broken)

	assert.Equal(t, 3, m.Table().Len())
	assert.True(t, strings.HasPrefix(m.errMsg, "Failed to load JSON"))

	m = press(t, m, "esc")
	assert.Empty(t, m.errMsg)
}

func TestErrorIsModal(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")
	m = load(t, m, "testdata/no_such_file.json")
	require.NotEmpty(t, m.errMsg)

	m = press(t, m, "/")
	assert.Equal(t, modeBrowsing, m.mode)

	m = press(t, m, "enter", "/")
	assert.Equal(t, modeSearching, m.mode)
}

func TestStaleRowsAreDropped(t *testing.T) {
	m := newTestApp(t, &fakeResolver{})
	model, cmd := m.Update(loadReportCmd("testdata/report.json")())
	m = model.(App)
	require.NotNil(t, cmd)
	stale := cmd()

	m = load(t, m, "testdata/no_files.json")
	model, next := m.Update(stale)
	m = model.(App)
	assert.Nil(t, next)
	assert.Zero(t, m.Table().Len())
}

func TestSortKeysToggle(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")

	m = press(t, m, "1")
	assert.Equal(t, "docs/README.md", m.Table().Row(0).FilePath)
	assert.Equal(t, "File Path ▲", m.grid.Columns()[0].Title)

	m = press(t, m, "1")
	assert.Equal(t, "src/app/packages.config", m.Table().Row(0).FilePath)
	assert.Equal(t, "File Path ▼", m.grid.Columns()[0].Title)

	m = press(t, m, "1")
	assert.Equal(t, "docs/README.md", m.Table().Row(0).FilePath)
}

func TestSearchSelectsMatchingRows(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")

	m = press(t, m, "/", "R", "E", "Q", "enter")
	assert.Equal(t, modeBrowsing, m.mode)
	assert.Equal(t, []int{1}, m.Table().Selected())
	assert.Equal(t, 1, m.grid.Cursor())
	assert.Equal(t, selectedMarker+"requirements.txt", m.grid.Rows()[1][0])

	m = press(t, m, "/", "x", "y", "z", "enter")
	assert.Empty(t, m.Table().Selected())
}

func TestEmptySearchClearsSelection(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")
	m = press(t, m, "/", "n", "e", "w", "t", "o", "n", "enter")
	require.Equal(t, []int{0}, m.Table().Selected())

	m.search.SetValue("")
	m = press(t, m, "/", "enter")
	assert.Empty(t, m.Table().Selected())
	assert.Equal(t, "Selection cleared.", m.status)
}

func TestExportWritesCSV(t *testing.T) {
	m := load(t, newTestApp(t, &fakeResolver{}), "testdata/report.json")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	m = model.(App)
	require.NotNil(t, cmd)
	m = drive(t, m, cmd)

	matches, err := filepath.Glob(filepath.Join(m.opts.ExportDir, "*-dependency-report.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
	assert.Contains(t, m.status, "Exported")
}

func TestOpenPickerAndCancel(t *testing.T) {
	m := newTestApp(t, &fakeResolver{})
	m = press(t, m, "o")
	assert.Equal(t, modePicking, m.mode)
	assert.Equal(t, []string{".json"}, m.picker.AllowedTypes)
	assert.Contains(t, m.View(), "Select a JSON report")

	m = press(t, m, "esc")
	assert.Equal(t, modeBrowsing, m.mode)
}

func TestWindowResize(t *testing.T) {
	m := newTestApp(t, &fakeResolver{})
	model, _ := m.Update(tea.WindowSizeMsg{Width: 170, Height: 40})
	m = model.(App)
	for _, c := range m.grid.Columns() {
		assert.Equal(t, 22, c.Width)
	}
}
