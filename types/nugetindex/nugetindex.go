package nugetindex

// VersionsIndex is the body of a NuGet flat container index.json.
type VersionsIndex struct {
	Versions []string `json:"versions"`
}

// Latest returns the last listed version. The index is assumed to be
// sorted ascending; no semantic comparison is made.
func (v VersionsIndex) Latest() (string, bool) {
	if len(v.Versions) == 0 {
		return "", false
	}
	return v.Versions[len(v.Versions)-1], true
}
