package dag

import (
	"fmt"
	"sync"

	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// NotRequestedError signals a lookup for a step that was never part of the
// workflow — distinct from a step that was requested but produced nothing.
type NotRequestedError struct {
	StepID string
}

func (e *NotRequestedError) Error() string {
	return fmt.Sprintf("no result for %q: step was not requested in this workflow", e.StepID)
}

// Results is the run-scoped store of completed step artifacts, keyed by
// step identifier. It is append-only during a run and read-only afterwards.
// A Results instance belongs to exactly one run.
type Results struct {
	mu        sync.RWMutex
	requested []string
	results   map[string]*transport.Result
}

func newResults(stepIDs []string) *Results {
	return &Results{
		requested: stepIDs,
		results:   make(map[string]*transport.Result, len(stepIDs)),
	}
}

func (r *Results) put(stepID string, res *transport.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[stepID] = res
}

// Get returns the artifact of the named step. A step outside the workflow
// yields a NotRequestedError; a requested step without a result (failed or
// skipped) yields a distinct lookup error.
func (r *Results) Get(stepID string) (*transport.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if res, ok := r.results[stepID]; ok {
		return res, nil
	}
	for _, id := range r.requested {
		if id == stepID {
			return nil, fmt.Errorf("step %q produced no result (failed or skipped)", stepID)
		}
	}
	return nil, &NotRequestedError{StepID: stepID}
}

// StepIDs returns every requested step identifier in scheduled order.
func (r *Results) StepIDs() []string {
	return append([]string(nil), r.requested...)
}

// Completed returns a copy of the completed artifacts by step identifier.
func (r *Results) Completed() map[string]*transport.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*transport.Result, len(r.results))
	for id, res := range r.results {
		out[id] = res
	}
	return out
}

// Len returns the number of completed steps.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
