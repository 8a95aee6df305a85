package contract

// CoverInfo is the decoded cover-page contract: the sheet count the index
// claims, a permit number when one is stated, and whether a large blank
// stamping area exists.
type CoverInfo struct {
	StatedSheetCount  int    `json:"stated_sheet_count"`
	PermitNumber      string `json:"permit_number,omitempty"`
	HasBlankStampArea bool   `json:"has_blank_stamp_area"`
}

// DecodeCoverPage parses a cover-page response. Returns nil on parse or
// validation failure.
func DecodeCoverPage(raw string) *CoverInfo {
	payload := Parse(raw)
	if payload == nil || !validates(coverPageSchema, payload) {
		return nil
	}
	return &CoverInfo{
		StatedSheetCount:  IntField(payload, "stated_sheet_count", 0),
		PermitNumber:      StringField(payload, "permit_number", 40),
		HasBlankStampArea: BoolField(payload, "has_blank_stamp_area"),
	}
}
