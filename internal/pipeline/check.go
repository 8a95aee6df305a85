// Package pipeline coordinates one analysis job end to end: page sampling,
// vision calls, the fixed compliance check list, fingerprinting, and
// version chain assignment.
package pipeline

// CheckStatus is the outcome of one compliance check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
	CheckSkip CheckStatus = "skip"
)

// Check identifiers, in report order. The list is fixed: every analysis
// returns exactly these eleven checks, marking the ones it could not run
// as skip rather than omitting them.
const (
	CheckSheetCount     = "declared_sheet_count"
	CheckCoverStampArea = "cover_stamp_area"
	CheckAddress        = "project_address"
	CheckFirmName       = "firm_name"
	CheckSheetNumbers   = "sheet_numbers"
	CheckSheetNames     = "sheet_names"
	CheckBlankArea      = "sheet_stamp_area"
	CheckConsistency    = "cross_page_consistency"
	CheckStamp          = "professional_stamp"
	CheckSignature      = "signature"
	CheckHatching       = "hatching_density"
)

// Check is one compliance check result.
type Check struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

var checklist = []struct{ id, name string }{
	{CheckSheetCount, "Declared sheet count matches page count"},
	{CheckCoverStampArea, "Cover has a blank approval stamp area"},
	{CheckAddress, "Project address present"},
	{CheckFirmName, "Design firm name present"},
	{CheckSheetNumbers, "Sheet numbers present"},
	{CheckSheetNames, "Sheet names present"},
	{CheckBlankArea, "Sheets have a blank stamp area"},
	{CheckConsistency, "Cross-page consistency"},
	{CheckStamp, "Professional stamp present"},
	{CheckSignature, "Signature present"},
	{CheckHatching, "Hatching density"},
}

// ChecklistSize is the fixed number of checks in every result.
var ChecklistSize = len(checklist)

// SkipAll returns the full check list with every check skipped for the
// same reason. Used when the job cannot be analyzed at all.
func SkipAll(reason string) []Check {
	out := make([]Check, 0, len(checklist))
	for _, c := range checklist {
		out = append(out, Check{ID: c.id, Name: c.name, Status: CheckSkip, Detail: reason})
	}
	return out
}

// orderChecks arranges a check map into fixed report order, filling any
// missing entry with a skip.
func orderChecks(byID map[string]Check) []Check {
	out := make([]Check, 0, len(checklist))
	for _, c := range checklist {
		if check, ok := byID[c.id]; ok {
			check.ID = c.id
			check.Name = c.name
			out = append(out, check)
			continue
		}
		out = append(out, Check{ID: c.id, Name: c.name, Status: CheckSkip, Detail: "check did not run"})
	}
	return out
}
