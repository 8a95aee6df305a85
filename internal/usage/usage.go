// Package usage accumulates vision-call accounting for one analysis job.
package usage

import (
	"sync"
	"time"
)

// Rates are the published per-million-token prices used for cost estimates.
type Rates struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultRates approximate current vision-model pricing in USD.
var DefaultRates = Rates{InputPerMillion: 2.50, OutputPerMillion: 10.00}

// Call is one recorded vision call.
type Call struct {
	CallType     string        `json:"call_type"`
	PageNumber   int           `json:"page_number"`
	Success      bool          `json:"success"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"duration"`
}

// Summary is the per-job usage accumulator. It is the only state mutated
// concurrently within a job, so Record takes a lock; one Summary is scoped to
// one job and never shared across jobs.
type Summary struct {
	mu    sync.Mutex
	rates Rates
	calls []Call
}

// NewSummary creates an empty accumulator with the given rates.
func NewSummary(rates Rates) *Summary {
	if rates.InputPerMillion <= 0 && rates.OutputPerMillion <= 0 {
		rates = DefaultRates
	}
	return &Summary{rates: rates}
}

// Record appends one call. Safe for concurrent use.
func (s *Summary) Record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Totals is a point-in-time aggregate of the accumulator.
type Totals struct {
	TotalCalls       int     `json:"total_calls"`
	SuccessfulCalls  int     `json:"successful_calls"`
	FailedCalls      int     `json:"failed_calls"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	DurationSeconds  float64 `json:"duration_seconds"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Snapshot aggregates all recorded calls.
func (s *Summary) Snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Totals
	for _, c := range s.calls {
		t.TotalCalls++
		if c.Success {
			t.SuccessfulCalls++
		} else {
			t.FailedCalls++
		}
		t.InputTokens += c.InputTokens
		t.OutputTokens += c.OutputTokens
		t.DurationSeconds += c.Duration.Seconds()
	}
	t.TotalTokens = t.InputTokens + t.OutputTokens
	t.EstimatedCostUSD = float64(t.InputTokens)/1e6*s.rates.InputPerMillion +
		float64(t.OutputTokens)/1e6*s.rates.OutputPerMillion
	return t
}
