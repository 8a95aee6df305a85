// Package consistency scores cross-page agreement of title-block data.
// Seven independent binary checks run over the sampled pages; the score is
// the fraction that pass. Address and firm mismatches are hard failures,
// everything else is informational.
package consistency

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tbrennem-source/plancheck/internal/types"
)

const totalChecks = 7

// Result is the outcome of a consistency scoring pass.
type Result struct {
	Skipped bool     `json:"skipped"`
	Percent float64  `json:"percent"`
	Issues  []string `json:"issues,omitempty"` // hard failures (blocking)
	Info    []string `json:"info,omitempty"`   // soft warnings (informational)
}

// Score runs the seven checks. Fewer than 2 extractions yields a skipped
// result, never a 0% score.
func Score(extractions []types.PageExtraction) Result {
	if len(extractions) < 2 {
		return Result{Skipped: true}
	}

	var res Result
	passed := 0

	if issue := checkUniformValue("project address", addressKey(extractions)); issue == "" {
		passed++
	} else {
		res.Issues = append(res.Issues, issue)
	}

	if issue := checkUniformValue("firm name", firmKey(extractions)); issue == "" {
		passed++
	} else {
		res.Issues = append(res.Issues, issue)
	}

	softChecks := []struct {
		name string
		get  func(types.PageExtraction) bool
	}{
		{"professional stamp", func(e types.PageExtraction) bool { return e.HasStamp }},
		{"signature", func(e types.PageExtraction) bool { return e.HasSignature }},
		{"2x2 blank stamping area", func(e types.PageExtraction) bool { return e.HasBlankArea }},
	}
	for _, sc := range softChecks {
		if info := checkUniformFlag(sc.name, extractions, sc.get); info == "" {
			passed++
		} else {
			res.Info = append(res.Info, info)
		}
	}

	if info := checkSheetPrefixes(extractions); info == "" {
		passed++
	} else {
		res.Info = append(res.Info, info)
	}

	if info := checkSheetSequence(extractions); info == "" {
		passed++
	} else {
		res.Info = append(res.Info, info)
	}

	res.Percent = float64(passed) / float64(totalChecks) * 100
	return res
}

func addressKey(extractions []types.PageExtraction) []string {
	vals := make([]string, 0, len(extractions))
	for _, e := range extractions {
		if e.ProjectAddress != "" {
			vals = append(vals, NormalizeAddress(e.ProjectAddress))
		}
	}
	return vals
}

func firmKey(extractions []types.PageExtraction) []string {
	vals := make([]string, 0, len(extractions))
	for _, e := range extractions {
		if e.FirmName != "" {
			vals = append(vals, collapseSpaces(strings.ToLower(e.FirmName)))
		}
	}
	return vals
}

// checkUniformValue passes when all non-empty normalized values agree.
// Fewer than two observed values is insufficient signal and passes.
func checkUniformValue(name string, vals []string) string {
	distinct := make(map[string]bool)
	for _, v := range vals {
		distinct[v] = true
	}
	if len(vals) < 2 || len(distinct) <= 1 {
		return ""
	}
	return fmt.Sprintf("%s differs across pages (%d distinct values)", name, len(distinct))
}

func checkUniformFlag(name string, extractions []types.PageExtraction, get func(types.PageExtraction) bool) string {
	count := 0
	for _, e := range extractions {
		if get(e) {
			count++
		}
	}
	if count == 0 || count == len(extractions) {
		return ""
	}
	return fmt.Sprintf("%s present on %d of %d pages", name, count, len(extractions))
}

var sheetParts = regexp.MustCompile(`^([A-Z]+)(\d+)\.(\d+)$`)

// checkSheetPrefixes passes when every sheet number carries a recognizable
// discipline prefix and no prefix appears in conflicting forms.
func checkSheetPrefixes(extractions []types.PageExtraction) string {
	malformed := 0
	for _, e := range extractions {
		if e.SheetNumber == "" {
			continue
		}
		if !sheetParts.MatchString(e.SheetNumber) {
			malformed++
		}
	}
	if malformed > 0 {
		return fmt.Sprintf("%d sheet numbers lack a standard discipline prefix", malformed)
	}
	return ""
}

// checkSheetSequence flags duplicate sheet numbers and numbering gaps between
// adjacent pages sharing a discipline prefix.
func checkSheetSequence(extractions []types.PageExtraction) string {
	sorted := make([]types.PageExtraction, len(extractions))
	copy(sorted, extractions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PageNumber < sorted[j].PageNumber })

	seen := make(map[string]bool)
	var problems []string
	var prev *types.PageExtraction
	for i := range sorted {
		e := &sorted[i]
		if e.SheetNumber == "" {
			continue
		}
		if seen[e.SheetNumber] {
			problems = append(problems, fmt.Sprintf("duplicate sheet number %s", e.SheetNumber))
		}
		seen[e.SheetNumber] = true

		if prev != nil && e.PageNumber == prev.PageNumber+1 {
			if gap := majorGap(prev.SheetNumber, e.SheetNumber); gap {
				problems = append(problems, fmt.Sprintf("numbering gap between %s and %s", prev.SheetNumber, e.SheetNumber))
			}
		}
		prev = e
	}
	if len(problems) > 0 {
		return strings.Join(problems, "; ")
	}
	return ""
}

// majorGap reports whether two same-prefix sheet numbers on adjacent pages
// skip more than one major number.
func majorGap(a, b string) bool {
	ma := sheetParts.FindStringSubmatch(a)
	mb := sheetParts.FindStringSubmatch(b)
	if ma == nil || mb == nil || ma[1] != mb[1] {
		return false
	}
	var majorA, majorB int
	fmt.Sscanf(ma[2], "%d", &majorA)
	fmt.Sscanf(mb[2], "%d", &majorB)
	return majorB-majorA > 1
}

// addressAbbreviations folds common street-suffix spellings so that
// "123 Main Street" and "123 Main St" compare equal.
var addressAbbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"road":      "rd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"circle":    "cir",
	"highway":   "hwy",
	"parkway":   "pkwy",
	"suite":     "ste",
	"apartment": "apt",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

var nonAddressChars = regexp.MustCompile(`[^a-z0-9 ]+`)

// NormalizeAddress lowercases, strips punctuation, collapses whitespace, and
// folds common suffix abbreviations.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAddressChars.ReplaceAllString(addr, " ")
	words := strings.Fields(addr)
	for i, w := range words {
		if abbr, ok := addressAbbreviations[w]; ok {
			words[i] = abbr
		}
	}
	return strings.Join(words, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
