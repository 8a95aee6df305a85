package providers

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tbrennem-source/plancheck/internal/usage"
)

// Orchestrator wraps a Client with per-job usage accounting and fan-out
// batching. One orchestrator is created per analysis job; the usage summary
// is its only shared mutable state.
type Orchestrator struct {
	client Client
	usage  *usage.Summary
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator recording into the given summary.
func NewOrchestrator(client Client, summary *usage.Summary, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, usage: summary, logger: logger}
}

// Configured reports whether the underlying client has a credential.
func (o *Orchestrator) Configured() bool { return o.client.Configured() }

// Call issues one vision call and records it into the usage summary. The
// returned result is never nil; failures are classified, not raised. A
// client returning neither a result nor an error is treated as a failure.
func (o *Orchestrator) Call(ctx context.Context, req *Request) *Result {
	result, err := o.client.Complete(ctx, req)
	if result == nil {
		if err == nil {
			err = errors.New("provider returned neither result nor error")
		}
		result = &Result{
			PageNumber:   req.PageNumber,
			CallType:     req.CallType,
			ErrorKind:    Classify(err),
			ErrorMessage: err.Error(),
		}
	}

	o.usage.Record(usage.Call{
		CallType:     result.CallType,
		PageNumber:   result.PageNumber,
		Success:      result.Success,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Duration:     result.Duration,
	})

	if !result.Success {
		o.logger.Warn("vision call failed",
			"call_type", result.CallType,
			"page", result.PageNumber,
			"kind", result.ErrorKind,
			"error", result.ErrorMessage,
		)
	}
	return result
}

// Batch issues the requests either concurrently or strictly sequentially.
// Results are index-aligned with the input, so page-number tags survive
// regardless of completion order. Concurrency is bounded by the caller's
// batch size; no extra backpressure is applied here.
func (o *Orchestrator) Batch(ctx context.Context, reqs []*Request, parallel bool) []*Result {
	results := make([]*Result, len(reqs))

	if !parallel {
		for i, req := range reqs {
			results[i] = o.Call(ctx, req)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *Request) {
			defer wg.Done()
			results[i] = o.Call(ctx, req)
		}(i, req)
	}
	wg.Wait()
	return results
}
