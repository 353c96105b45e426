package scanreport

// NotAvailable marks a value that is unknown or does not apply.
const NotAvailable = "N/A"

// UpToDate is the update column value when no newer version is known.
const UpToDate = "Up-to-date ✅"

type ScanReport struct {
	Files    []FileEntry   `json:"files"`
	Binaries []BinaryEntry `json:"binaries,omitempty"`
}

type FileEntry struct {
	Path              *string            `json:"path"`
	LicenseDetections []LicenseDetection `json:"license_detections"`
	Copyrights        []Copyright        `json:"copyrights"`
	PackageData       []PackageData      `json:"package_data"`
	Vulnerabilities   []Vulnerability    `json:"vulnerabilities"`
}

type LicenseDetection struct {
	LicenseExpression *string `json:"license_expression"`
}

type Copyright struct {
	Statement *string `json:"statement"`
}

type PackageData struct {
	Name    *string `json:"name"`
	Version *string `json:"version"`
}

type Vulnerability struct {
	CVEID *string `json:"cve_id"`
}

type BinaryEntry struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

// DisplayRow is the flattened, human-readable projection of one FileEntry.
type DisplayRow struct {
	FilePath       string
	License        string
	Copyright      string
	PackageName    string
	CurrentVersion string
	CVE            string
	UpdateStatus   string
}

// Columns holds the table headings in DisplayRow field order.
var Columns = []string{
	"File Path",
	"License",
	"Copyright",
	"Package Name",
	"Current Version",
	"CVE",
	"Update to this Version",
}

// Values returns the row's cells in column order.
func (r DisplayRow) Values() []string {
	return []string{
		r.FilePath,
		r.License,
		r.Copyright,
		r.PackageName,
		r.CurrentVersion,
		r.CVE,
		r.UpdateStatus,
	}
}

func valueOr(v *string) string {
	if v == nil {
		return NotAvailable
	}
	return *v
}

// DisplayPath returns the entry path, or N/A when the key is absent.
func (f FileEntry) DisplayPath() string {
	return valueOr(f.Path)
}

func (f FileEntry) License() string {
	if len(f.LicenseDetections) == 0 {
		return NotAvailable
	}
	return valueOr(f.LicenseDetections[0].LicenseExpression)
}

func (f FileEntry) Copyright() string {
	if len(f.Copyrights) == 0 {
		return NotAvailable
	}
	return valueOr(f.Copyrights[0].Statement)
}

// Package returns the name and version of the first package_data element.
func (f FileEntry) Package() (name string, version string) {
	if len(f.PackageData) == 0 {
		return NotAvailable, NotAvailable
	}
	return valueOr(f.PackageData[0].Name), valueOr(f.PackageData[0].Version)
}

func (f FileEntry) CVE() string {
	if len(f.Vulnerabilities) == 0 {
		return NotAvailable
	}
	return valueOr(f.Vulnerabilities[0].CVEID)
}
