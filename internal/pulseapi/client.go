// Package pulseapi implements the remote transport over the Pulse HTTP API.
package pulseapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/job"
	"github.com/pulse-analytics/pulse-go/internal/transport"
	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://core.researchwiseai.com/pulse/v1"
	// DevBaseURL is the development API root.
	DevBaseURL = "https://dev.core.researchwiseai.com/pulse/v1"
	// DefaultTimeout bounds a single HTTP exchange, not a whole job.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the Pulse API. It satisfies the full transport capability
// set: submission, job status polling, and result retrieval.
type Client struct {
	http *resty.Client

	// monitor hosts the per-block jobs of batched similarity submissions.
	// Workflow-level jobs are hosted by the engine's own monitor.
	monitor *job.Monitor
}

var _ transport.Transport = (*Client)(nil)

// Option customizes a client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (dev, a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(u) }
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.http.SetAuthToken(key) }
}

// WithTimeout bounds each HTTP exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient builds a client against the production API root.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.monitor = job.NewMonitor(c, c)
	return c
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// Submit issues the remote call for one step. A 200 response carries the
// artifact inline; a 202 defers it to a job. A 202 under the fast flag is an
// API contract violation and surfaces as an APIError.
func (c *Client) Submit(ctx context.Context, sub transport.Submission) (transport.Outcome, error) {
	texts := sub.Inputs["texts"]
	themes := sub.Inputs["themes"]

	switch sub.Kind {
	case workflow.KindThemeGeneration:
		cfg, ok := sub.Config.Normalized().(workflow.ThemeGenerationConfig)
		if !ok {
			return transport.Outcome{}, fmt.Errorf("theme generation submitted with %T config", sub.Config)
		}
		body := map[string]any{
			"inputs":    texts,
			"minThemes": cfg.MinThemes,
			"maxThemes": cfg.MaxThemes,
		}
		if cfg.Context != "" {
			body["context"] = cfg.Context
		}
		if sub.Fast {
			body["fast"] = true
		}
		return c.post(ctx, "/themes", body, sub.Fast, sub.Kind)

	case workflow.KindSentiment:
		body := map[string]any{"inputs": texts}
		if sub.Fast {
			body["fast"] = true
		}
		return c.post(ctx, "/sentiment", body, sub.Fast, sub.Kind)

	case workflow.KindEmbeddings:
		body := map[string]any{"inputs": texts}
		if sub.Fast {
			body["fast"] = true
		}
		return c.post(ctx, "/embeddings", body, sub.Fast, sub.Kind)

	case workflow.KindThemeExtraction:
		cfg, ok := sub.Config.Normalized().(workflow.ThemeExtractionConfig)
		if !ok {
			return transport.Outcome{}, fmt.Errorf("theme extraction submitted with %T config", sub.Config)
		}
		body := map[string]any{"inputs": texts, "themes": themes}
		if cfg.Version != "" {
			body["version"] = cfg.Version
		}
		if sub.Fast {
			body["fast"] = true
		}
		return c.post(ctx, "/extractions", body, sub.Fast, sub.Kind)

	case workflow.KindCluster:
		return c.submitSelfSimilarity(ctx, sub.Kind, texts, sub.Fast)

	case workflow.KindThemeAllocation:
		return c.submitCrossSimilarity(ctx, sub.Kind, texts, themes, sub.Fast)
	}
	return transport.Outcome{}, fmt.Errorf("unknown step kind %q", sub.Kind)
}

// submitSelfSimilarity computes all-pairs similarity over one set. Sets
// beyond the per-request item limit are split into blocks and reassembled
// client-side.
func (c *Client) submitSelfSimilarity(ctx context.Context, kind workflow.Kind, items []string, fast bool) (transport.Outcome, error) {
	if len(items) <= MaxItems {
		body := simBody{Set: items, Flatten: true, Fast: fast}
		return c.post(ctx, "/similarity", body, fast, kind)
	}
	ctxlog.FromContext(ctx).Debug("Batching self-similarity request.", "items", len(items))
	matrix, err := c.batchedSelf(ctx, items)
	if err != nil {
		return transport.Outcome{}, err
	}
	res, err := transport.EncodeResult(kind, transport.SimilarityPayload{Matrix: matrix})
	if err != nil {
		return transport.Outcome{}, err
	}
	return transport.Outcome{Result: res}, nil
}

// submitCrossSimilarity computes similarity of every item in a against
// every item in b, batching when the combined size exceeds the limit.
func (c *Client) submitCrossSimilarity(ctx context.Context, kind workflow.Kind, a, b []string, fast bool) (transport.Outcome, error) {
	if len(a)+len(b) <= MaxItems {
		body := simBody{SetA: a, SetB: b, Flatten: true, Fast: fast}
		return c.post(ctx, "/similarity", body, fast, kind)
	}
	ctxlog.FromContext(ctx).Debug("Batching cross-similarity request.", "rows", len(a), "cols", len(b))
	matrix, err := c.batchedCross(ctx, a, b)
	if err != nil {
		return transport.Outcome{}, err
	}
	res, err := transport.EncodeResult(kind, transport.SimilarityPayload{Matrix: matrix})
	if err != nil {
		return transport.Outcome{}, err
	}
	return transport.Outcome{Result: res}, nil
}

// post sends one JSON request and classifies the response into the
// fast-path artifact, a deferred job handle, or an API error.
func (c *Client) post(ctx context.Context, path string, body any, fast bool, kind workflow.Kind) (transport.Outcome, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetContentType("application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return transport.Outcome{}, fmt.Errorf("post %s: %w", path, err)
	}
	raw := res.Bytes()

	switch res.StatusCode() {
	case http.StatusOK:
		return transport.Outcome{Result: transport.NewResult(kind, raw)}, nil
	case http.StatusAccepted:
		// The fast flag demands a synchronous artifact; an enqueued job
		// means the contract was not honored.
		if fast {
			return transport.Outcome{}, &transport.APIError{StatusCode: res.StatusCode(), Body: string(raw)}
		}
		var h transport.JobHandle
		if err := json.Unmarshal(raw, &h); err != nil {
			return transport.Outcome{}, fmt.Errorf("decode job submission: %w", err)
		}
		if h.ID == "" {
			return transport.Outcome{}, fmt.Errorf("job submission response carries no jobId")
		}
		return transport.Outcome{Job: &h}, nil
	default:
		return transport.Outcome{}, &transport.APIError{StatusCode: res.StatusCode(), Body: string(raw)}
	}
}

// wireJobStatus is the status document as the API sends it, including the
// legacy field and state names still emitted by older deployments.
type wireJobStatus struct {
	ID        string          `json:"jobId"`
	Status    string          `json:"status"`
	JobStatus string          `json:"jobStatus"`
	ResultURL string          `json:"resultUrl"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload"`
}

// PollStatus queries a job's current state via GET /jobs?jobId=.
func (c *Client) PollStatus(ctx context.Context, jobID string) (transport.JobStatus, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("jobId", jobID).
		Get("/jobs")
	if err != nil {
		return transport.JobStatus{}, fmt.Errorf("poll job %s: %w", jobID, err)
	}
	if res.StatusCode() != http.StatusOK {
		return transport.JobStatus{}, &transport.APIError{StatusCode: res.StatusCode(), Body: res.String()}
	}
	var w wireJobStatus
	if err := json.Unmarshal(res.Bytes(), &w); err != nil {
		return transport.JobStatus{}, fmt.Errorf("decode job status: %w", err)
	}
	return w.toStatus(jobID), nil
}

func (w wireJobStatus) toStatus(jobID string) transport.JobStatus {
	id := w.ID
	if id == "" {
		id = jobID
	}
	state := w.Status
	if state == "" {
		state = w.JobStatus
	}
	return transport.JobStatus{
		ID:             id,
		State:          normalizeState(state),
		ResultLocation: w.ResultURL,
		Message:        w.Message,
		Payload:        w.Payload,
	}
}

// normalizeState maps legacy wire state names onto the current lifecycle.
func normalizeState(s string) transport.JobState {
	switch s {
	case "pending":
		return transport.StateQueued
	case "processing":
		return transport.StateRunning
	case "error":
		return transport.StateFailed
	default:
		return transport.JobState(s)
	}
}

// FetchResult retrieves a finished artifact from its result location. The
// location is usually a presigned absolute URL outside the API root. The
// artifact comes back untyped; the engine stamps the kind during
// finalization.
func (c *Client) FetchResult(ctx context.Context, location string) (*transport.Result, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(location)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, &transport.APIError{StatusCode: res.StatusCode(), Body: res.String()}
	}
	return &transport.Result{Payload: res.Bytes()}, nil
}
