// Package sampler selects which pages of a plan set are sent for analysis.
package sampler

import (
	"sort"

	"github.com/tbrennem-source/plancheck/internal/types"
)

// Select returns the ordered, duplicate-free list of 0-based page indices to
// analyze for the given page count and mode. It is pure: no side effects,
// deterministic output, every index within [0, totalPages).
func Select(totalPages int, mode types.Mode) []int {
	if totalPages <= 0 {
		return []int{}
	}

	// Tiny documents are always analyzed in full.
	if totalPages <= 2 {
		return allPages(totalPages)
	}

	switch mode {
	case types.ModeFull:
		return allPages(totalPages)
	case types.ModeCompliance:
		picks := []int{0}
		if totalPages >= 2 {
			picks = append(picks, 1)
		}
		if totalPages >= 4 {
			picks = append(picks, totalPages/2)
		}
		return dedupeSorted(picks, totalPages)
	default:
		picks := []int{0}
		if totalPages >= 3 {
			picks = append(picks, 1)
		}
		picks = append(picks, totalPages/2)
		if totalPages-2 > 0 {
			picks = append(picks, totalPages-2)
		}
		if totalPages >= 10 {
			picks = append(picks, totalPages/3)
		}
		return dedupeSorted(picks, totalPages)
	}
}

func allPages(totalPages int) []int {
	pages := make([]int, totalPages)
	for i := range pages {
		pages[i] = i
	}
	return pages
}

func dedupeSorted(picks []int, totalPages int) []int {
	seen := make(map[int]bool, len(picks))
	out := make([]int, 0, len(picks))
	for _, p := range picks {
		if p < 0 || p >= totalPages || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
