// Package projector turns a scan report into display rows.
package projector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"dependency-checker/types/scanreport"
)

// ErrInvalidFormat is returned when the document has no "files" array.
var ErrInvalidFormat = errors.New("invalid JSON format: no 'files' key found")

// VersionResolver returns the latest known version of a package, or N/A.
type VersionResolver interface {
	ResolveLatestVersion(ctx context.Context, packageName string) string
}

// LoadReport reads and decodes the report at path. I/O and syntax errors are
// returned wrapped; a document without a "files" array yields ErrInvalidFormat.
func LoadReport(path string) (*scanreport.ScanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load JSON: %w", err)
	}
	return ParseReport(data)
}

func ParseReport(data []byte) (*scanreport.ScanReport, error) {
	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to load JSON: %w", err)
	}

	object, ok := document.(map[string]interface{})
	if !ok {
		return nil, ErrInvalidFormat
	}
	if _, ok := object["files"].([]interface{}); !ok {
		return nil, ErrInvalidFormat
	}

	var report scanreport.ScanReport
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to load JSON: %w", err)
	}
	log.Debugf("ParseReport:: %d files, %d binaries", len(report.Files), len(report.Binaries))
	return &report, nil
}

// UpdateStatus compares versions as plain strings: any difference between
// two known versions is reported as an available update.
func UpdateStatus(currentVersion, latestVersion string) string {
	if latestVersion != scanreport.NotAvailable && currentVersion != scanreport.NotAvailable && latestVersion != currentVersion {
		return latestVersion
	}
	return scanreport.UpToDate
}

func ProjectEntry(ctx context.Context, entry scanreport.FileEntry, resolver VersionResolver) scanreport.DisplayRow {
	packageName, currentVersion := entry.Package()
	latestVersion := resolver.ResolveLatestVersion(ctx, packageName)

	return scanreport.DisplayRow{
		FilePath:       entry.DisplayPath(),
		License:        entry.License(),
		Copyright:      entry.Copyright(),
		PackageName:    packageName,
		CurrentVersion: currentVersion,
		CVE:            entry.CVE(),
		UpdateStatus:   UpdateStatus(currentVersion, latestVersion),
	}
}

// Project resolves every entry in file order, one lookup at a time.
func Project(ctx context.Context, report *scanreport.ScanReport, resolver VersionResolver) []scanreport.DisplayRow {
	rows := make([]scanreport.DisplayRow, 0, len(report.Files))
	for i, entry := range report.Files {
		row := ProjectEntry(ctx, entry, resolver)
		log.Debugf("Project:: %d/%d %s -> %s", i+1, len(report.Files), row.FilePath, row.UpdateStatus)
		rows = append(rows, row)
	}
	return rows
}
