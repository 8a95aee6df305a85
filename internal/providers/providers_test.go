package providers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbrennem-source/plancheck/internal/usage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ErrorNone},
		{ErrNotConfigured, ErrorNotConfigured},
		{context.DeadlineExceeded, ErrorTimeout},
		{errors.New("request timed out after 30s"), ErrorTimeout},
		{errors.New("context deadline exceeded while reading body"), ErrorTimeout},
		{errors.New("client Timeout exceeded"), ErrorTimeout},
		{errors.New("connection refused"), ErrorUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestOrchestrator_CallRecordsUsage(t *testing.T) {
	mock := &MockClient{ResponsesByType: map[string]string{"title_block": `{"ok":true}`}}
	summary := usage.NewSummary(usage.DefaultRates)
	o := NewOrchestrator(mock, summary, nil)

	res := o.Call(context.Background(), &Request{CallType: "title_block", PageNumber: 3})
	if !res.Success || res.Text != `{"ok":true}` {
		t.Fatalf("result = %+v", res)
	}
	if res.PageNumber != 3 {
		t.Errorf("PageNumber tag lost: %d", res.PageNumber)
	}

	totals := summary.Snapshot()
	if totals.TotalCalls != 1 || totals.SuccessfulCalls != 1 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestOrchestrator_FailureIsClassifiedNotRaised(t *testing.T) {
	mock := &MockClient{Err: errors.New("upstream timed out")}
	summary := usage.NewSummary(usage.DefaultRates)
	o := NewOrchestrator(mock, summary, nil)

	res := o.Call(context.Background(), &Request{CallType: "annotations", PageNumber: 1})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind != ErrorTimeout {
		t.Errorf("ErrorKind = %q, want timeout", res.ErrorKind)
	}
	if summary.Snapshot().FailedCalls != 1 {
		t.Error("failed call not recorded")
	}
}

func TestOrchestrator_BatchPreservesTagsAcrossCompletionOrder(t *testing.T) {
	// A client whose per-call latency varies, so completion order differs
	// from submission order under concurrency.
	var counter int64
	client := &jitterClient{counter: &counter}
	summary := usage.NewSummary(usage.DefaultRates)
	o := NewOrchestrator(client, summary, nil)

	reqs := make([]*Request, 8)
	for i := range reqs {
		reqs[i] = &Request{CallType: "title_block", PageNumber: i + 1}
	}

	results := o.Batch(context.Background(), reqs, true)
	if len(results) != len(reqs) {
		t.Fatalf("len = %d", len(results))
	}
	for i, res := range results {
		if res.PageNumber != i+1 {
			t.Errorf("results[%d].PageNumber = %d, want %d", i, res.PageNumber, i+1)
		}
	}
	if summary.Snapshot().TotalCalls != 8 {
		t.Errorf("TotalCalls = %d, want 8", summary.Snapshot().TotalCalls)
	}
}

func TestOrchestrator_BatchSequential(t *testing.T) {
	mock := &MockClient{ResponsesByType: map[string]string{"hatching": "{}"}}
	o := NewOrchestrator(mock, usage.NewSummary(usage.DefaultRates), nil)

	reqs := []*Request{
		{CallType: "hatching", PageNumber: 2},
		{CallType: "hatching", PageNumber: 5},
	}
	results := o.Batch(context.Background(), reqs, false)
	if results[0].PageNumber != 2 || results[1].PageNumber != 5 {
		t.Errorf("sequential batch lost tags: %+v", results)
	}
}

func TestOrchestrator_DegenerateClientResultIsAFailure(t *testing.T) {
	summary := usage.NewSummary(usage.DefaultRates)
	o := NewOrchestrator(&silentClient{}, summary, nil)

	res := o.Call(context.Background(), &Request{CallType: "title_block", PageNumber: 4})
	if res == nil {
		t.Fatal("Call returned nil result")
	}
	if res.Success || res.ErrorMessage == "" {
		t.Errorf("result = %+v, want classified failure", res)
	}
	if res.PageNumber != 4 || res.CallType != "title_block" {
		t.Errorf("request tags lost: %+v", res)
	}
	if summary.Snapshot().FailedCalls != 1 {
		t.Error("degenerate call not recorded as failed")
	}
}

// silentClient violates the Complete contract by returning neither a
// result nor an error.
type silentClient struct{}

func (s *silentClient) Complete(context.Context, *Request) (*Result, error) { return nil, nil }
func (s *silentClient) Configured() bool                                    { return true }
func (s *silentClient) Name() string                                        { return "silent" }

type jitterClient struct {
	counter *int64
}

func (j *jitterClient) Complete(_ context.Context, req *Request) (*Result, error) {
	n := atomic.AddInt64(j.counter, 1)
	// Later submissions finish sooner.
	time.Sleep(time.Duration(10-n) * time.Millisecond)
	return &Result{
		Success:    true,
		Text:       fmt.Sprintf(`{"page":%d}`, req.PageNumber),
		PageNumber: req.PageNumber,
		CallType:   req.CallType,
	}, nil
}

func (j *jitterClient) Configured() bool { return true }
func (j *jitterClient) Name() string     { return "jitter" }

func TestOpenAIClient_NotConfiguredFailsFast(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{})
	if c.Configured() {
		t.Fatal("client without API key must not report configured")
	}
	res, err := c.Complete(context.Background(), &Request{CallType: "title_block", PageNumber: 1})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if res.Success || res.ErrorKind != ErrorNotConfigured {
		t.Errorf("result = %+v", res)
	}
}
