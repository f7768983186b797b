package transport

import (
	"context"
	"fmt"

	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// Submission is one unit of remote work: a step kind, its normalized
// configuration, and the resolved content of every named input.
type Submission struct {
	Kind   workflow.Kind
	Config workflow.Config
	// Inputs maps input role ("texts", "themes") to resolved items.
	Inputs map[string][]string
	// Fast requests the synchronous fast path from the API.
	Fast bool
}

// Outcome is the result of submitting work: exactly one of Result (fast
// path) or Job (deferred path) is set.
type Outcome struct {
	Result *Result
	Job    *JobHandle
}

// Transport is the full remote capability set consumed by the engine.
type Transport interface {
	Submitter
	StatusPoller
	ResultFetcher
}

// Submitter issues a step's remote call.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Outcome, error)
}

// StatusPoller queries the state of a deferred job.
type StatusPoller interface {
	PollStatus(ctx context.Context, jobID string) (JobStatus, error)
}

// ResultFetcher retrieves a finished artifact from its result location.
type ResultFetcher interface {
	FetchResult(ctx context.Context, location string) (*Result, error)
}

// APIError is a non-success response from the remote API. The job monitor
// classifies these into transient and permanent faults by status code.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pulse api error: status %d: %s", e.StatusCode, e.Body)
}
