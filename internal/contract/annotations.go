package contract

import (
	"github.com/tbrennem-source/plancheck/internal/types"
)

// DecodeAnnotations converts a raw model response into validated annotations
// stamped with the 1-based page number. Entries missing a label or a numeric
// coordinate are dropped; enum fields fall back to documented defaults;
// coordinates are clamped into [0,100]. At most MaxAnnotationsPerPage
// survive, selected in input order. Returns nil on parse failure.
func DecodeAnnotations(raw string, pageNumber int) []types.Annotation {
	payload := Parse(raw)
	if payload == nil || !validates(annotationsSchema, payload) {
		return nil
	}

	candidates := ListField(payload, "annotations")
	out := make([]types.Annotation, 0, len(candidates))
	for _, c := range candidates {
		label := StringField(c, "label", types.MaxAnnotationLabelLen)
		if label == "" {
			continue
		}
		x, okX := FloatField(c, "x")
		y, okY := FloatField(c, "y")
		if !okX || !okY {
			continue
		}

		out = append(out, types.Annotation{
			Type:       types.NormalizeAnnotationType(StringField(c, "type", 0)),
			Label:      label,
			X:          ClampPercent(x),
			Y:          ClampPercent(y),
			Anchor:     types.NormalizeAnchor(StringField(c, "anchor", 0)),
			Importance: types.NormalizeImportance(StringField(c, "importance", 0)),
			PageNumber: pageNumber,
		})
		if len(out) == types.MaxAnnotationsPerPage {
			break
		}
	}
	return out
}
