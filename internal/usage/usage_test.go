package usage

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestSummary_Snapshot(t *testing.T) {
	s := NewSummary(Rates{InputPerMillion: 2.0, OutputPerMillion: 10.0})
	s.Record(Call{CallType: "title_block", PageNumber: 1, Success: true, InputTokens: 1000, OutputTokens: 200, Duration: 2 * time.Second})
	s.Record(Call{CallType: "annotations", PageNumber: 2, Success: false, Duration: time.Second})

	got := s.Snapshot()
	if got.TotalCalls != 2 || got.SuccessfulCalls != 1 || got.FailedCalls != 1 {
		t.Errorf("call counts = %+v", got)
	}
	if got.TotalTokens != 1200 {
		t.Errorf("TotalTokens = %d, want 1200", got.TotalTokens)
	}
	wantCost := 1000.0/1e6*2.0 + 200.0/1e6*10.0
	if math.Abs(got.EstimatedCostUSD-wantCost) > 1e-12 {
		t.Errorf("EstimatedCostUSD = %v, want %v", got.EstimatedCostUSD, wantCost)
	}
	if got.DurationSeconds != 3.0 {
		t.Errorf("DurationSeconds = %v, want 3", got.DurationSeconds)
	}
}

func TestSummary_ConcurrentRecordLosesNothing(t *testing.T) {
	s := NewSummary(DefaultRates)

	const goroutines = 16
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.Record(Call{Success: true, InputTokens: 1})
			}
		}()
	}
	wg.Wait()

	got := s.Snapshot()
	if got.TotalCalls != goroutines*perGoroutine {
		t.Errorf("TotalCalls = %d, want %d", got.TotalCalls, goroutines*perGoroutine)
	}
	if got.InputTokens != goroutines*perGoroutine {
		t.Errorf("InputTokens = %d, want %d", got.InputTokens, goroutines*perGoroutine)
	}
}
