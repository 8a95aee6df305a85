package pipeline

import (
	"fmt"
	"strings"

	"github.com/tbrennem-source/plancheck/internal/consistency"
	"github.com/tbrennem-source/plancheck/internal/contract"
	"github.com/tbrennem-source/plancheck/internal/types"
)

// denseHatchingPercent is the coverage above which hatching is flagged as
// likely to obscure text and dimensions.
const denseHatchingPercent = 40.0

// coverChecks derives the two cover-page checks from one decoded cover
// response. A nil cover means the call failed or the response was
// unusable; both checks skip.
func coverChecks(cover *contract.CoverInfo, pageCount int) (sheetCount, stampArea Check) {
	if cover == nil {
		skip := Check{Status: CheckSkip, Detail: "cover page response unusable"}
		return skip, skip
	}

	switch {
	case cover.StatedSheetCount == 0:
		sheetCount = Check{Status: CheckSkip, Detail: "cover does not state a sheet count"}
	case cover.StatedSheetCount == pageCount:
		sheetCount = Check{Status: CheckPass, Detail: fmt.Sprintf("index declares %d sheets, pdf has %d pages", cover.StatedSheetCount, pageCount)}
	default:
		sheetCount = Check{Status: CheckFail, Detail: fmt.Sprintf("index declares %d sheets, pdf has %d pages", cover.StatedSheetCount, pageCount)}
	}

	if cover.HasBlankStampArea {
		stampArea = Check{Status: CheckPass, Detail: "cover has a blank area for the approval stamp"}
	} else {
		stampArea = Check{Status: CheckFail, Detail: "no blank stamp area found on the cover"}
	}
	return sheetCount, stampArea
}

// presenceCheck grades how many sampled pages carry a field: all pass,
// some warn, none fail.
func presenceCheck(extractions []types.PageExtraction, what string, has func(types.PageExtraction) bool) Check {
	if len(extractions) == 0 {
		return Check{Status: CheckSkip, Detail: "no page extractions available"}
	}
	count := 0
	for _, e := range extractions {
		if has(e) {
			count++
		}
	}
	detail := fmt.Sprintf("%s on %d of %d sampled pages", what, count, len(extractions))
	switch {
	case count == len(extractions):
		return Check{Status: CheckPass, Detail: detail}
	case count > 0:
		return Check{Status: CheckWarn, Detail: detail}
	default:
		return Check{Status: CheckFail, Detail: detail}
	}
}

// anyPageCheck passes when at least one sampled page carries the field.
// Stamps and signatures commonly appear only on a subset of sheets.
func anyPageCheck(extractions []types.PageExtraction, what string, has func(types.PageExtraction) bool) Check {
	if len(extractions) == 0 {
		return Check{Status: CheckSkip, Detail: "no page extractions available"}
	}
	for _, e := range extractions {
		if has(e) {
			return Check{Status: CheckPass, Detail: what + " found"}
		}
	}
	return Check{Status: CheckFail, Detail: what + " not found on any sampled page"}
}

// consistencyCheck converts a scorer result into a check: hard issues
// fail, soft issues warn, a skipped score skips.
func consistencyCheck(result consistency.Result) Check {
	if result.Skipped {
		return Check{Status: CheckSkip, Detail: "fewer than 2 pages sampled"}
	}
	detail := fmt.Sprintf("%.1f%% consistent", result.Percent)
	if len(result.Issues) > 0 {
		return Check{Status: CheckFail, Detail: detail + ": " + strings.Join(result.Issues, "; ")}
	}
	if len(result.Info) > 0 {
		return Check{Status: CheckWarn, Detail: detail + ": " + strings.Join(result.Info, "; ")}
	}
	return Check{Status: CheckPass, Detail: detail}
}

// hatchingCheck aggregates up to two per-page density readings.
func hatchingCheck(infos []*contract.HatchingInfo) Check {
	var densities []float64
	for _, info := range infos {
		if info != nil {
			densities = append(densities, info.DensityPercent)
		}
	}
	if len(densities) == 0 {
		return Check{Status: CheckSkip, Detail: "hatching responses unusable"}
	}

	sum := 0.0
	for _, d := range densities {
		sum += d
	}
	avg := sum / float64(len(densities))
	detail := fmt.Sprintf("average %.1f%% coverage over %d pages", avg, len(densities))
	if avg > denseHatchingPercent {
		return Check{Status: CheckWarn, Detail: detail + "; dense hatching may obscure text"}
	}
	return Check{Status: CheckPass, Detail: detail}
}
