package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tbrennem-source/plancheck/internal/types"
)

func TestParse_PlainJSON(t *testing.T) {
	got := Parse(`{"sheet_number": "A1.1"}`)
	if got == nil {
		t.Fatal("Parse returned nil for valid JSON")
	}
	if got["sheet_number"] != "A1.1" {
		t.Errorf("sheet_number = %v", got["sheet_number"])
	}
}

func TestParse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"sheet_number\": \"A1.1\"}\n```"
	if got := Parse(raw); got == nil || got["sheet_number"] != "A1.1" {
		t.Errorf("Parse(fenced) = %v", got)
	}

	raw = "```\n{\"firm_name\": \"Acme Architects\"}\n```"
	if got := Parse(raw); got == nil || got["firm_name"] != "Acme Architects" {
		t.Errorf("Parse(bare fence) = %v", got)
	}
}

func TestParse_SurroundingProse(t *testing.T) {
	raw := "Here is the result:\n{\"sheet_number\": \"S2.0\"}\nLet me know if you need more."
	if got := Parse(raw); got == nil || got["sheet_number"] != "S2.0" {
		t.Errorf("Parse(prose) = %v", got)
	}
}

func TestParse_GarbageReturnsNil(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "{broken", "[1,2,3"} {
		if got := Parse(raw); got != nil {
			t.Errorf("Parse(%q) = %v, want nil", raw, got)
		}
	}
}

func TestNormalizeSheetNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a1.1", "A1.1"},
		{" A1.1 ", "A1.1"},
		{"S10.02", "S10.02"},
		{"A1.1 FLOOR PLAN", "A1.1"},
		{"sheet one", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSheetNumber(tt.in); got != tt.want {
			t.Errorf("NormalizeSheetNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeTitleBlock(t *testing.T) {
	raw := `{
		"sheet_number": "a2.1",
		"sheet_name": "Second Floor Plan",
		"project_address": "123 Main Street",
		"firm_name": "Acme Architects",
		"has_professional_stamp": true,
		"has_signature": "yes",
		"has_2x2_blank_area": false,
		"revision_history": [
			{"revision_number": "1", "revision_date": "2025-01-15", "description": "Initial submission"},
			{"revision_number": "", "revision_date": "", "description": ""}
		]
	}`
	ext := DecodeTitleBlock(raw, 3)
	if ext == nil {
		t.Fatal("DecodeTitleBlock returned nil")
	}
	if ext.PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", ext.PageNumber)
	}
	if ext.SheetNumber != "A2.1" {
		t.Errorf("SheetNumber = %q, want A2.1", ext.SheetNumber)
	}
	if !ext.HasStamp || !ext.HasSignature || ext.HasBlankArea {
		t.Errorf("flags = %v %v %v", ext.HasStamp, ext.HasSignature, ext.HasBlankArea)
	}
	if len(ext.RevisionHistory) != 1 {
		t.Errorf("RevisionHistory len = %d, want 1 (empty entry dropped)", len(ext.RevisionHistory))
	}
}

func TestDecodeTitleBlock_UnparseableReturnsNil(t *testing.T) {
	if got := DecodeTitleBlock("no json here", 1); got != nil {
		t.Errorf("DecodeTitleBlock(garbage) = %v, want nil", got)
	}
}

func TestDecodeAnnotations_CapsAtFifteen(t *testing.T) {
	items := make([]map[string]any, 20)
	for i := range items {
		items[i] = map[string]any{
			"type":  "dimension",
			"label": fmt.Sprintf("item %d", i),
			"x":     float64(i),
			"y":     float64(i),
		}
	}
	raw, _ := json.Marshal(map[string]any{"annotations": items})

	got := DecodeAnnotations(string(raw), 2)
	if len(got) != types.MaxAnnotationsPerPage {
		t.Fatalf("len = %d, want %d", len(got), types.MaxAnnotationsPerPage)
	}
	// Excess is dropped deterministically in input order.
	if got[0].Label != "item 0" || got[14].Label != "item 14" {
		t.Errorf("order not preserved: first=%q last=%q", got[0].Label, got[14].Label)
	}
	for _, a := range got {
		if a.PageNumber != 2 {
			t.Errorf("PageNumber = %d, want 2", a.PageNumber)
		}
	}
}

func TestDecodeAnnotations_DropsInvalidKeepsSiblings(t *testing.T) {
	raw := `{"annotations": [
		{"type": "stamp", "label": "", "x": 10, "y": 10},
		{"type": "stamp", "label": "ok", "x": 10, "y": 10},
		{"type": "stamp", "label": "no coords", "x": "left", "y": 10}
	]}`
	got := DecodeAnnotations(raw, 1)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Label != "ok" {
		t.Errorf("surviving label = %q", got[0].Label)
	}
}

func TestDecodeAnnotations_ClampsAndDefaults(t *testing.T) {
	raw := `{"annotations": [
		{"type": "martian_glyph", "label": "clamp me", "x": -10, "y": 150, "anchor": "center", "importance": "extreme"}
	]}`
	got := DecodeAnnotations(raw, 1)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	a := got[0]
	if a.X != 0.0 || a.Y != 100.0 {
		t.Errorf("coords = (%v, %v), want (0, 100)", a.X, a.Y)
	}
	if a.Type != types.AnnotationGeneralNote {
		t.Errorf("Type = %q, want general_note", a.Type)
	}
	if a.Anchor != types.AnchorTopRight {
		t.Errorf("Anchor = %q, want top-right", a.Anchor)
	}
	if a.Importance != types.ImportanceMedium {
		t.Errorf("Importance = %q, want medium", a.Importance)
	}
}

func TestDecodeAnnotations_TruncatesLabelOnRuneBoundary(t *testing.T) {
	label := strings.Repeat("§", types.MaxAnnotationLabelLen+10)
	raw, _ := json.Marshal(map[string]any{"annotations": []map[string]any{
		{"type": "dimension", "label": label, "x": 10, "y": 10},
	}})
	got := DecodeAnnotations(string(raw), 1)
	if len(got) != 1 {
		t.Fatal("expected one annotation")
	}
	if n := len([]rune(got[0].Label)); n != types.MaxAnnotationLabelLen {
		t.Errorf("label length = %d runes, want %d", n, types.MaxAnnotationLabelLen)
	}
	if !utf8.ValidString(got[0].Label) {
		t.Error("truncation split a multibyte character")
	}
}

func TestDecodeAnnotations_RoundsToOneDecimal(t *testing.T) {
	raw := `{"annotations": [{"type": "dimension", "label": "x", "x": 33.333, "y": 66.666}]}`
	got := DecodeAnnotations(raw, 1)
	if len(got) != 1 {
		t.Fatal("expected one annotation")
	}
	if got[0].X != 33.3 || got[0].Y != 66.7 {
		t.Errorf("coords = (%v, %v), want (33.3, 66.7)", got[0].X, got[0].Y)
	}
}

func TestDecodeCoverPage(t *testing.T) {
	raw := "```json\n{\"stated_sheet_count\": 24, \"permit_number\": \"2025-0142\", \"has_blank_stamp_area\": true}\n```"
	info := DecodeCoverPage(raw)
	if info == nil {
		t.Fatal("DecodeCoverPage returned nil")
	}
	if info.StatedSheetCount != 24 || info.PermitNumber != "2025-0142" || !info.HasBlankStampArea {
		t.Errorf("info = %+v", info)
	}

	if DecodeCoverPage("nope") != nil {
		t.Error("expected nil for unparseable response")
	}
}

func TestDecodeHatching(t *testing.T) {
	info := DecodeHatching(`{"density_percent": 112.5, "assessment": "very dense"}`)
	if info == nil {
		t.Fatal("DecodeHatching returned nil")
	}
	if info.DensityPercent != 100.0 {
		t.Errorf("DensityPercent = %v, want clamped 100", info.DensityPercent)
	}

	if DecodeHatching(`{"assessment": "missing density"}`) != nil {
		t.Error("expected nil when density_percent absent")
	}
}
