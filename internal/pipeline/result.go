package pipeline

import (
	"github.com/tbrennem-source/plancheck/internal/types"
	"github.com/tbrennem-source/plancheck/internal/usage"
)

// Result is one job's aggregated analysis output: the fixed check list,
// the raw page extractions sorted by page number, the spatial annotations,
// and the vision usage summary.
type Result struct {
	Checks       []Check                `json:"checks"`
	Extractions  []types.PageExtraction `json:"extractions"`
	Annotations  []types.Annotation     `json:"annotations"`
	SampledPages []int                  `json:"sampled_pages"`
	PageCount    int                    `json:"page_count"`
	Usage        usage.Totals           `json:"usage"`
}
