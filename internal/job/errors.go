package job

import (
	"fmt"
	"time"

	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// FailedError reports a job that reached the failed terminal state. It
// carries the remote-provided message, or a default when the API sent none.
type FailedError struct {
	JobID   string
	Message string
}

func (e *FailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "job failed"
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, msg)
}

// TimeoutError reports a Wait call that exceeded its bound with the job
// still non-terminal. It is distinct from FailedError: the remote work was
// not observed to fail and is not cancelled.
type TimeoutError struct {
	JobID     string
	LastState transport.JobState
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s did not reach a terminal state within %s (last observed %q)", e.JobID, e.Timeout, e.LastState)
}

// TransportError reports a status query that exhausted its retry budget.
// It is distinct from FailedError: the job itself was never observed in a
// terminal state.
type TransportError struct {
	JobID    string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("job %s status query failed after %d attempts: %v", e.JobID, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
