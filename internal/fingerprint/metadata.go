package fingerprint

import (
	"path/filepath"
	"regexp"
	"strings"
)

// JobRef is the slice of an analysis job that identity matching needs.
// VersionGroup is carried through untouched so a match's group can seed
// the chain assignment without a second lookup.
type JobRef struct {
	ID              string
	UserID          string
	Filename        string
	ContentHash     string
	PermitNumber    string
	PropertyAddress string
	VersionGroup    string
	Structural      Fingerprint
}

// MetadataMatch is the layer-3 identity test: equal permit numbers, equal
// property addresses, or equal normalized filenames. Empty values on either
// side never match.
func MetadataMatch(a, b JobRef) bool {
	if a.PermitNumber != "" && b.PermitNumber != "" &&
		strings.EqualFold(a.PermitNumber, b.PermitNumber) {
		return true
	}
	if a.PropertyAddress != "" && b.PropertyAddress != "" &&
		strings.EqualFold(a.PropertyAddress, b.PropertyAddress) {
		return true
	}
	na, nb := NormalizeFilename(a.Filename), NormalizeFilename(b.Filename)
	return na != "" && na == nb
}

var nonAlnumRuns = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeFilename lowercases, strips the extension, and collapses
// non-alphanumeric runs to single spaces.
func NormalizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = nonAlnumRuns.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
