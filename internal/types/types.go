// Package types holds the shared records produced by plan-set analysis:
// per-page title-block extractions, spatial annotations for UI overlay, and
// the analysis modes that drive page sampling.
package types

import "strings"

// Mode selects how many pages of a plan set are analyzed.
type Mode string

const (
	// ModeCompliance analyzes at most three pages to minimize call cost.
	ModeCompliance Mode = "compliance"

	// ModeSample analyzes a representative spread of pages.
	ModeSample Mode = "sample"

	// ModeFull analyzes every page.
	ModeFull Mode = "full"
)

// ParseMode normalizes a mode string, defaulting to sample.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCompliance:
		return ModeCompliance
	case ModeFull:
		return ModeFull
	default:
		return ModeSample
	}
}

// RevisionEntry is one row of a sheet's revision history table.
type RevisionEntry struct {
	RevisionNumber string `json:"revision_number"`
	RevisionDate   string `json:"revision_date"`
	Description    string `json:"description"`
}

// PageExtraction is one page's structured title-block data, produced by a
// single vision call and immutable once stored on the job's session record.
type PageExtraction struct {
	PageNumber      int             `json:"page_number"` // 1-based
	SheetNumber     string          `json:"sheet_number,omitempty"`
	SheetName       string          `json:"sheet_name,omitempty"`
	ProjectAddress  string          `json:"project_address,omitempty"`
	FirmName        string          `json:"firm_name,omitempty"`
	HasStamp        bool            `json:"has_professional_stamp"`
	HasSignature    bool            `json:"has_signature"`
	HasBlankArea    bool            `json:"has_2x2_blank_area"`
	RevisionHistory []RevisionEntry `json:"revision_history,omitempty"`
}

// AnnotationType classifies a spatial markup on a page.
type AnnotationType string

const (
	AnnotationCodeReference     AnnotationType = "code_reference"
	AnnotationDimension         AnnotationType = "dimension"
	AnnotationOccupancyLabel    AnnotationType = "occupancy_label"
	AnnotationConstructionType  AnnotationType = "construction_type"
	AnnotationScopeIndicator    AnnotationType = "scope_indicator"
	AnnotationTitleBlock        AnnotationType = "title_block"
	AnnotationStamp             AnnotationType = "stamp"
	AnnotationStructuralElement AnnotationType = "structural_element"
	AnnotationGeneralNote       AnnotationType = "general_note"
	AnnotationReviewerNote      AnnotationType = "reviewer_note"
	AnnotationAIResponse        AnnotationType = "ai_reviewer_response"
	AnnotationEPRIssue          AnnotationType = "epr_issue"
)

// annotationTypes is the closed set of valid annotation types.
var annotationTypes = map[AnnotationType]bool{
	AnnotationCodeReference:     true,
	AnnotationDimension:         true,
	AnnotationOccupancyLabel:    true,
	AnnotationConstructionType:  true,
	AnnotationScopeIndicator:    true,
	AnnotationTitleBlock:        true,
	AnnotationStamp:             true,
	AnnotationStructuralElement: true,
	AnnotationGeneralNote:       true,
	AnnotationReviewerNote:      true,
	AnnotationAIResponse:        true,
	AnnotationEPRIssue:          true,
}

// NormalizeAnnotationType returns t if valid, otherwise general_note.
func NormalizeAnnotationType(t string) AnnotationType {
	at := AnnotationType(strings.ToLower(strings.TrimSpace(t)))
	if annotationTypes[at] {
		return at
	}
	return AnnotationGeneralNote
}

// Anchor names the corner an annotation label hangs from.
type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
)

// NormalizeAnchor returns a if valid, otherwise top-right.
func NormalizeAnchor(a string) Anchor {
	switch Anchor(strings.ToLower(strings.TrimSpace(a))) {
	case AnchorTopLeft:
		return AnchorTopLeft
	case AnchorBottomLeft:
		return AnchorBottomLeft
	case AnchorBottomRight:
		return AnchorBottomRight
	case AnchorTopRight:
		return AnchorTopRight
	}
	return AnchorTopRight
}

// Importance ranks how prominently an annotation renders.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// NormalizeImportance returns i if valid, otherwise medium.
func NormalizeImportance(i string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(i))) {
	case ImportanceHigh:
		return ImportanceHigh
	case ImportanceLow:
		return ImportanceLow
	case ImportanceMedium:
		return ImportanceMedium
	}
	return ImportanceMedium
}

// MaxAnnotationLabelLen caps annotation label length.
const MaxAnnotationLabelLen = 60

// MaxAnnotationsPerPage caps how many annotations one page may yield.
const MaxAnnotationsPerPage = 15

// Annotation is one spatially-located markup on a page. Coordinates are
// percentages of page width/height in [0,100] at one decimal of precision.
type Annotation struct {
	Type       AnnotationType `json:"type"`
	Label      string         `json:"label"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Anchor     Anchor         `json:"anchor"`
	Importance Importance     `json:"importance"`
	PageNumber int            `json:"page_number"`
}
