// Package providers implements the vision completion collaborator: a single
// remote multimodal endpoint that turns a page image and a prompt into a
// JSON-shaped text payload.
package providers

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTimeout bounds one vision call unless the request overrides it.
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned when no API credential is present. The
// pipeline checks this once per job and short-circuits to a skip checklist
// without issuing any calls.
var ErrNotConfigured = errors.New("vision provider not configured: missing API key")

// ErrorKind classifies a failed vision call.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorTimeout       ErrorKind = "timeout"
	ErrorUnknown       ErrorKind = "unknown"
	ErrorNotConfigured ErrorKind = "not_configured"
)

// Classify normalizes a call error: anything that looks like a deadline
// becomes a single timeout kind, everything else is unknown with the
// original message retained for logs. Both are non-fatal to the job.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	if errors.Is(err, ErrNotConfigured) {
		return ErrorNotConfigured
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "deadline"} {
		if strings.Contains(msg, marker) {
			return ErrorTimeout
		}
	}
	return ErrorUnknown
}

// Request is one vision call. PageNumber and CallType are caller-supplied
// tags carried through to the result regardless of completion order.
type Request struct {
	Image        []byte
	Prompt       string
	SystemPrompt string
	Model        string // uses the client default if empty
	MaxTokens    int
	Timeout      time.Duration // DefaultTimeout if zero

	PageNumber int    // 1-based
	CallType   string // e.g. "title_block", "annotations"
}

// Result is the outcome of one vision call.
type Result struct {
	Success      bool
	Text         string
	ErrorKind    ErrorKind
	ErrorMessage string

	InputTokens  int
	OutputTokens int
	Duration     time.Duration

	PageNumber int
	CallType   string
}

// Client is the remote multimodal completion endpoint.
type Client interface {
	// Complete issues one call. The result always carries the request tags;
	// failures are classified into the result, and err mirrors the failure
	// for callers that want to wrap or log it.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// Configured reports whether a credential is present. Checked once per
	// job, never per call.
	Configured() bool

	// Name returns the provider identifier.
	Name() string
}
