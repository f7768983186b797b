// Package job tracks deferred remote computations from submission to a
// terminal state. The monitor polls the status endpoint cooperatively
// (timer-driven, cancellable) so one step's polling never blocks the other
// steps sharing a scheduler run.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// Defaults for the polling and retry loops.
const (
	DefaultPollInterval  = 2 * time.Second
	DefaultRetryAttempts = 10
	DefaultRetryDelay    = 2 * time.Second
	DefaultWaitTimeout   = 180 * time.Second
)

// Job is the locally tracked state of one deferred remote computation. It
// is created on submission, mutated only by Refresh, and logically consumed
// when Wait resolves it into a Result.
type Job struct {
	ID             string
	State          transport.JobState
	ResultLocation string
	Message        string
	payload        []byte
}

// Monitor drives jobs to completion against a status poller and result
// fetcher. The zero retry/interval fields fall back to the defaults above.
type Monitor struct {
	poller  transport.StatusPoller
	fetcher transport.ResultFetcher

	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewMonitor returns a monitor with default polling behavior.
func NewMonitor(poller transport.StatusPoller, fetcher transport.ResultFetcher) *Monitor {
	return &Monitor{
		poller:        poller,
		fetcher:       fetcher,
		PollInterval:  DefaultPollInterval,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

// Track begins tracking a freshly submitted job handle.
func (m *Monitor) Track(h transport.JobHandle) *Job {
	return &Job{ID: h.ID, State: transport.StateQueued}
}

// Refresh issues one status query for the job. Transient faults (network
// errors, the job not being visible yet, server errors) are retried up to
// the attempt bound with a fixed delay; exhausting the budget returns a
// TransportError. A permanent non-success response returns immediately.
// On success the observed status replaces the job's fields wholesale.
func (m *Monitor) Refresh(ctx context.Context, j *Job) error {
	logger := ctxlog.FromContext(ctx).With("job_id", j.ID)
	attempts := m.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	delay := m.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := m.poller.PollStatus(ctx, j.ID)
		if err == nil {
			j.State = status.State
			j.ResultLocation = status.ResultLocation
			j.Message = status.Message
			j.payload = status.Payload
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !transientFault(err) {
			return err
		}
		lastErr = err
		logger.Debug("Transient fault polling job status.", "attempt", attempt, "error", err)
		if attempt < attempts {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return &TransportError{JobID: j.ID, Attempts: attempts, Err: lastErr}
}

// Wait polls the job at the monitor's interval until a terminal state is
// observed or timeout elapses. A completed job with a result location
// resolves by fetching the artifact; without one, the job's own payload is
// the artifact. A failed job returns a FailedError carrying the remote
// message. Exceeding timeout returns a TimeoutError and leaves the job in
// its last observed state — the remote work is not cancelled.
func (m *Monitor) Wait(ctx context.Context, j *Job, timeout time.Duration) (*transport.Result, error) {
	logger := ctxlog.FromContext(ctx).With("job_id", j.ID)
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	interval := m.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := m.Refresh(ctx, j); err != nil {
			return nil, err
		}
		logger.Debug("Observed job state.", "state", j.State)

		switch j.State {
		case transport.StateCompleted:
			return m.resolve(ctx, j)
		case transport.StateFailed:
			return nil, &FailedError{JobID: j.ID, Message: j.Message}
		}

		if time.Now().After(deadline) {
			return nil, &TimeoutError{JobID: j.ID, LastState: j.State, Timeout: timeout}
		}
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// resolve turns a completed job into its final artifact.
func (m *Monitor) resolve(ctx context.Context, j *Job) (*transport.Result, error) {
	if j.ResultLocation != "" {
		res, err := m.fetcher.FetchResult(ctx, j.ResultLocation)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	// No external location: the job's own payload is the result. An API
	// that sent neither yields the final status document itself.
	if len(j.payload) > 0 {
		return &transport.Result{Payload: j.payload}, nil
	}
	raw, err := json.Marshal(transport.JobStatus{
		ID:             j.ID,
		State:          j.State,
		ResultLocation: j.ResultLocation,
		Message:        j.Message,
	})
	if err != nil {
		return nil, err
	}
	return &transport.Result{Payload: raw}, nil
}

// transientFault classifies a status-query error for the retry loop.
// Anything that is not an explicit, permanent API response (4xx other than
// not-found and request-timeout) is worth retrying.
func transientFault(err error) bool {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			return true
		}
		return false
	}
	// Network-level failures carry no status code; treat them as transient.
	return true
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
