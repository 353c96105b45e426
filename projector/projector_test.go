package projector

import (
	"context"
	"testing"

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
	if packageName == "" || packageName == scanreport.NotAvailable {
		return scanreport.NotAvailable
	}
	if v, ok := f.versions[packageName]; ok {
		return v
	}
	return scanreport.NotAvailable
}

func strPtr(s string) *string { return &s }

func TestLoadReport(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantFiles int
		wantErr   error
		anyErr    bool
	}{
		{name: "valid file", file: "testdata/scan_valid.json", wantFiles: 3},
		{name: "missing files key", file: "testdata/no_files.json", wantErr: ErrInvalidFormat},
		{name: "truncated json", file: "testdata/invalid.json", anyErr: true},
		{name: "missing file", file: "testdata/does_not_exist.json", anyErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report, err := LoadReport(tc.file)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, report)
			case tc.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrInvalidFormat)
				assert.Nil(t, report)
			default:
				require.NoError(t, err)
				assert.Len(t, report.Files, tc.wantFiles)
				assert.Len(t, report.Binaries, 1)
			}
		})
	}
}

func TestParseReportShapes(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "files is an object", data: `{"files": {"path": "a"}}`, wantErr: ErrInvalidFormat},
		{name: "files is null", data: `{"files": null}`, wantErr: ErrInvalidFormat},
		{name: "top level array", data: `[{"files": []}]`, wantErr: ErrInvalidFormat},
		{name: "empty files", data: `{"files": [], "extra": 1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report, err := ParseReport([]byte(tc.data))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, report.Files)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    string
	}{
		{name: "equal", current: "1.0.0", latest: "1.0.0", want: scanreport.UpToDate},
		{name: "newer", current: "1.0.0", latest: "2.0.0", want: "2.0.0"},
		{name: "latest unknown", current: "1.0.0", latest: scanreport.NotAvailable, want: scanreport.UpToDate},
		{name: "current unknown", current: scanreport.NotAvailable, latest: "2.0.0", want: scanreport.UpToDate},
		// Plain string inequality: an installed version ahead of the registry
		// is still reported as an update.
		{name: "lexical difference only", current: "10.0", latest: "2.0", want: "2.0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UpdateStatus(tc.current, tc.latest))
		})
	}
}

func TestProjectEntry(t *testing.T) {
	entry := scanreport.FileEntry{
		Path: strPtr("lib/foo"),
		PackageData: []scanreport.PackageData{
			{Name: strPtr("foo"), Version: strPtr("1.0.0")},
		},
	}

	t.Run("same version is up to date", func(t *testing.T) {
		row := ProjectEntry(context.Background(), entry, &fakeResolver{versions: map[string]string{"foo": "1.0.0"}})
		assert.Equal(t, scanreport.UpToDate, row.UpdateStatus)
	})

	t.Run("different version is offered", func(t *testing.T) {
		row := ProjectEntry(context.Background(), entry, &fakeResolver{versions: map[string]string{"foo": "2.0.0"}})
		assert.Equal(t, "2.0.0", row.UpdateStatus)
		assert.Equal(t, "foo", row.PackageName)
		assert.Equal(t, "1.0.0", row.CurrentVersion)
	})

	t.Run("empty entry", func(t *testing.T) {
		resolver := &fakeResolver{}
		row := ProjectEntry(context.Background(), scanreport.FileEntry{Path: strPtr("empty.txt")}, resolver)
		assert.Equal(t, scanreport.DisplayRow{
			FilePath:       "empty.txt",
			License:        scanreport.NotAvailable,
			Copyright:      scanreport.NotAvailable,
			PackageName:    scanreport.NotAvailable,
			CurrentVersion: scanreport.NotAvailable,
			CVE:            scanreport.NotAvailable,
			UpdateStatus:   scanreport.UpToDate,
		}, row)
		assert.Equal(t, []string{scanreport.NotAvailable}, resolver.calls)
	})
}

func TestProject(t *testing.T) {
	report, err := LoadReport("testdata/scan_valid.json")
	require.NoError(t, err)

	resolver := &fakeResolver{versions: map[string]string{"Newtonsoft.Json": "13.0.3"}}
	rows := Project(context.Background(), report, resolver)

	require.Len(t, rows, 3)
	assert.Equal(t, scanreport.DisplayRow{
		FilePath:       "src/packages.config",
		License:        "mit",
		Copyright:      "Copyright (c) 2007 James Newton-King",
		PackageName:    "Newtonsoft.Json",
		CurrentVersion: "12.0.1",
		CVE:            "CVE-2024-21907",
		UpdateStatus:   "13.0.3",
	}, rows[0])
	assert.Equal(t, "README.md", rows[1].FilePath)
	assert.Equal(t, scanreport.UpToDate, rows[1].UpdateStatus)
	assert.Equal(t, scanreport.NotAvailable, rows[2].FilePath)
	assert.Equal(t, []string{"Newtonsoft.Json", scanreport.NotAvailable, scanreport.NotAvailable}, resolver.calls)
}
