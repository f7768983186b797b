package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pulse-analytics/pulse-go/internal/cache"
)

// ErrSkipped marks a step that never ran because an upstream step failed.
// It is a symptom, not a root cause: run-level error reporting filters it
// out when picking the failure to surface.
var ErrSkipped = errors.New("skipped due to upstream failure")

// ConfigError reports a problem with the workflow declaration itself —
// an unresolvable dependency name, a cycle, an invalid option. It is raised
// at graph-build time, before any remote call, and is never retried.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("workflow configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// StepError records a step failure with enough context to diagnose without
// re-running: the step identifier, the fingerprint of the attempted
// invocation (empty if the failure preceded fingerprinting), and the
// underlying error.
type StepError struct {
	StepID      string
	Fingerprint cache.Fingerprint
	Err         error
}

func (e *StepError) Error() string {
	if e.Fingerprint != "" {
		return fmt.Sprintf("step %q failed (fingerprint %s): %v", e.StepID, shortFP(e.Fingerprint), e.Err)
	}
	return fmt.Sprintf("step %q failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// RunError is the best-effort policy's aggregate outcome: every failed step
// keyed by identifier, skipped steps included with their skip cause.
type RunError struct {
	Failures map[string]error
}

func (e *RunError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%d step(s) failed: %s", len(ids), strings.Join(ids, ", "))
}

func shortFP(fp cache.Fingerprint) string {
	if len(fp) > 12 {
		return string(fp[:12])
	}
	return string(fp)
}
