package contract

import (
	"regexp"
	"strings"

	"github.com/tbrennem-source/plancheck/internal/types"
)

// sheetNumberPattern is the normalized form of a discipline-prefixed sheet
// number, e.g. A1.1 or S10.02.
var sheetNumberPattern = regexp.MustCompile(`^[A-Z]+\d+\.\d+`)

const (
	maxSheetNameLen = 120
	maxAddressLen   = 200
	maxFirmNameLen  = 120
)

// DecodeTitleBlock converts a raw model response into a PageExtraction for
// the given 1-based page number. Returns nil when the response cannot be
// parsed or fails contract validation.
func DecodeTitleBlock(raw string, pageNumber int) *types.PageExtraction {
	payload := Parse(raw)
	if payload == nil || !validates(titleBlockSchema, payload) {
		return nil
	}

	ext := &types.PageExtraction{
		PageNumber:     pageNumber,
		SheetNumber:    NormalizeSheetNumber(StringField(payload, "sheet_number", 0)),
		SheetName:      StringField(payload, "sheet_name", maxSheetNameLen),
		ProjectAddress: StringField(payload, "project_address", maxAddressLen),
		FirmName:       StringField(payload, "firm_name", maxFirmNameLen),
		HasStamp:       BoolField(payload, "has_professional_stamp"),
		HasSignature:   BoolField(payload, "has_signature"),
		HasBlankArea:   BoolField(payload, "has_2x2_blank_area"),
	}

	for _, rev := range ListField(payload, "revision_history") {
		entry := types.RevisionEntry{
			RevisionNumber: StringField(rev, "revision_number", 20),
			RevisionDate:   StringField(rev, "revision_date", 40),
			Description:    StringField(rev, "description", 200),
		}
		if entry.RevisionNumber == "" && entry.Description == "" {
			continue
		}
		ext.RevisionHistory = append(ext.RevisionHistory, entry)
	}

	return ext
}

// NormalizeSheetNumber uppercases and validates a sheet number against the
// canonical pattern. Unrecognizable values normalize to "".
func NormalizeSheetNumber(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if m := sheetNumberPattern.FindString(s); m != "" {
		return m
	}
	return ""
}
