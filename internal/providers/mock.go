package providers

import (
	"context"
	"sync"
	"time"
)

// MockClient is a scripted Client for tests.
type MockClient struct {
	mu sync.Mutex

	// ResponsesByType maps a call type to the text returned for it.
	ResponsesByType map[string]string

	// Err, when set, fails every call with this error.
	Err error

	// NotConfigured makes Configured return false.
	NotConfigured bool

	// Latency is added to every call's reported duration.
	Latency time.Duration

	calls []*Request
}

// Complete returns the scripted response for the request's call type.
func (m *MockClient) Complete(_ context.Context, req *Request) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	result := &Result{PageNumber: req.PageNumber, CallType: req.CallType, Duration: m.Latency}

	if m.NotConfigured {
		result.ErrorKind = ErrorNotConfigured
		result.ErrorMessage = ErrNotConfigured.Error()
		return result, ErrNotConfigured
	}
	if m.Err != nil {
		result.ErrorKind = Classify(m.Err)
		result.ErrorMessage = m.Err.Error()
		return result, m.Err
	}

	result.Success = true
	result.Text = m.ResponsesByType[req.CallType]
	result.InputTokens = 100
	result.OutputTokens = 50
	return result, nil
}

// Configured reports the scripted configuration state.
func (m *MockClient) Configured() bool { return !m.NotConfigured }

// Name returns the provider identifier.
func (m *MockClient) Name() string { return "mock" }

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many calls were issued.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify interface
var _ Client = (*MockClient)(nil)
