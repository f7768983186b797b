package transport

import (
	"encoding/json"
	"fmt"

	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// JobState is the lifecycle state of a deferred remote computation.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether the state ends the job's lifecycle.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobHandle identifies a deferred remote computation returned by Submit.
type JobHandle struct {
	ID string `json:"jobId"`
}

// JobStatus is one observation of a job's remote state. A refresh replaces
// the tracked job's fields with these wholesale (last-write-wins).
type JobStatus struct {
	ID             string          `json:"jobId"`
	State          JobState        `json:"status"`
	ResultLocation string          `json:"resultUrl,omitempty"`
	Message        string          `json:"message,omitempty"`
	// Payload carries the finished artifact inline when the API completes a
	// job without an external result location.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is the output artifact of a completed step. Payload holds the raw
// response document; typed accessors decode it per kind. Results are
// immutable after construction and round-trip the disk cache as JSON.
type Result struct {
	Kind    workflow.Kind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Theme is a single generated theme.
type Theme struct {
	ShortLabel      string   `json:"shortLabel"`
	Label           string   `json:"label"`
	Description     string   `json:"description"`
	Representatives []string `json:"representatives"`
}

// ThemesPayload is the artifact of a theme generation step.
type ThemesPayload struct {
	Themes    []Theme `json:"themes"`
	RequestID string  `json:"requestId,omitempty"`
}

// Labels returns the short labels of every theme.
func (p ThemesPayload) Labels() []string {
	labels := make([]string, len(p.Themes))
	for i, t := range p.Themes {
		labels[i] = t.ShortLabel
	}
	return labels
}

// SentimentRecord is the classification of one input text.
type SentimentRecord struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// SentimentPayload is the artifact of a sentiment step.
type SentimentPayload struct {
	Results   []SentimentRecord `json:"results"`
	RequestID string            `json:"requestId,omitempty"`
}

// Labels returns the sentiment category per input, in input order.
func (p SentimentPayload) Labels() []string {
	labels := make([]string, len(p.Results))
	for i, r := range p.Results {
		labels[i] = r.Sentiment
	}
	return labels
}

// SimilarityPayload is the artifact of a similarity computation (cluster
// steps and the raw form of allocation steps).
type SimilarityPayload struct {
	Scenario  string      `json:"scenario,omitempty"`
	Mode      string      `json:"mode,omitempty"`
	N         int         `json:"n,omitempty"`
	Flattened []float64   `json:"flattened,omitempty"`
	Matrix    [][]float64 `json:"matrix,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// SimilarityMatrix returns the full matrix, reconstructing it from the
// flattened representation when the API omitted the matrix form.
func (p SimilarityPayload) SimilarityMatrix() ([][]float64, error) {
	if p.Matrix != nil {
		return p.Matrix, nil
	}
	flat := p.Flattened
	switch p.Scenario {
	case "self":
		n := p.N
		fullTri := n * (n + 1) / 2
		noDiagTri := n * (n - 1) / 2
		mat := make([][]float64, n)
		for i := range mat {
			mat[i] = make([]float64, n)
		}
		idx := 0
		switch len(flat) {
		case fullTri:
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					mat[i][j] = flat[idx]
					mat[j][i] = flat[idx]
					idx++
				}
			}
		case noDiagTri:
			for i := 0; i < n; i++ {
				mat[i][i] = 1.0
			}
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					mat[i][j] = flat[idx]
					mat[j][i] = flat[idx]
					idx++
				}
			}
		default:
			return nil, fmt.Errorf("unexpected flattened length %d for self-similarity with n=%d", len(flat), n)
		}
		return mat, nil
	case "cross":
		n := p.N
		if n <= 0 || len(flat)%n != 0 {
			return nil, fmt.Errorf("cannot reshape flattened length %d into %d rows", len(flat), n)
		}
		m := len(flat) / n
		mat := make([][]float64, n)
		for i := 0; i < n; i++ {
			mat[i] = flat[i*m : (i+1)*m]
		}
		return mat, nil
	}
	return nil, fmt.Errorf("unknown similarity scenario %q", p.Scenario)
}

// ExtractionsPayload is the artifact of a theme extraction step. The shape
// is [inputs][themes][extracted elements].
type ExtractionsPayload struct {
	Extractions [][][]string `json:"extractions"`
	RequestID   string       `json:"requestId,omitempty"`
}

// Elements flattens every extracted element in input order.
func (p ExtractionsPayload) Elements() []string {
	var out []string
	for _, perInput := range p.Extractions {
		for _, perTheme := range perInput {
			out = append(out, perTheme...)
		}
	}
	return out
}

// EmbeddingDocument is a single embedded input text.
type EmbeddingDocument struct {
	ID     string    `json:"id,omitempty"`
	Text   string    `json:"text"`
	Vector []float64 `json:"vector"`
}

// EmbeddingsPayload is the artifact of an embeddings step.
type EmbeddingsPayload struct {
	Embeddings []EmbeddingDocument `json:"embeddings"`
	RequestID  string              `json:"requestId,omitempty"`
}

// AllocationPayload is the artifact of a theme allocation step: the theme
// labels, the text-to-theme similarity matrix, and the thresholding options
// the step was declared with. Assignments are derived, not stored.
type AllocationPayload struct {
	Themes      []string    `json:"themes"`
	Similarity  [][]float64 `json:"similarity"`
	SingleLabel bool        `json:"single_label"`
	Threshold   float64     `json:"threshold"`
}

// Assignments returns, per input text, the index of its most similar theme.
func (p AllocationPayload) Assignments() []int {
	out := make([]int, len(p.Similarity))
	for i, row := range p.Similarity {
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// MultiAssignments returns, per input text, every theme index whose
// similarity clears the threshold.
func (p AllocationPayload) MultiAssignments() [][]int {
	out := make([][]int, len(p.Similarity))
	for i, row := range p.Similarity {
		var hits []int
		for j, v := range row {
			if v >= p.Threshold {
				hits = append(hits, j)
			}
		}
		out[i] = hits
	}
	return out
}

// NewResult wraps an already-encoded payload document.
func NewResult(kind workflow.Kind, payload []byte) *Result {
	return &Result{Kind: kind, Payload: json.RawMessage(payload)}
}

// EncodeResult marshals v as the payload of a new Result.
func EncodeResult(kind workflow.Kind, v any) (*Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", kind, err)
	}
	return &Result{Kind: kind, Payload: raw}, nil
}

func (r *Result) decode(kind workflow.Kind, v any) error {
	if r.Kind != kind {
		return fmt.Errorf("result holds %q payload, not %q", r.Kind, kind)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decoding %s result: %w", kind, err)
	}
	return nil
}

// Themes decodes a theme generation artifact.
func (r *Result) Themes() (ThemesPayload, error) {
	var p ThemesPayload
	err := r.decode(workflow.KindThemeGeneration, &p)
	return p, err
}

// Sentiments decodes a sentiment artifact.
func (r *Result) Sentiments() (SentimentPayload, error) {
	var p SentimentPayload
	err := r.decode(workflow.KindSentiment, &p)
	return p, err
}

// Similarity decodes a clustering artifact.
func (r *Result) Similarity() (SimilarityPayload, error) {
	var p SimilarityPayload
	err := r.decode(workflow.KindCluster, &p)
	return p, err
}

// Extractions decodes a theme extraction artifact.
func (r *Result) Extractions() (ExtractionsPayload, error) {
	var p ExtractionsPayload
	err := r.decode(workflow.KindThemeExtraction, &p)
	return p, err
}

// Embeddings decodes an embeddings artifact.
func (r *Result) Embeddings() (EmbeddingsPayload, error) {
	var p EmbeddingsPayload
	err := r.decode(workflow.KindEmbeddings, &p)
	return p, err
}

// Allocation decodes a theme allocation artifact.
func (r *Result) Allocation() (AllocationPayload, error) {
	var p AllocationPayload
	err := r.decode(workflow.KindThemeAllocation, &p)
	return p, err
}

// Items exposes the artifact as a downstream text input: theme labels for a
// generation step, sentiment categories for a sentiment step, extracted
// elements for an extraction step. Other kinds have no text view.
func (r *Result) Items() ([]string, error) {
	switch r.Kind {
	case workflow.KindThemeGeneration:
		p, err := r.Themes()
		if err != nil {
			return nil, err
		}
		return p.Labels(), nil
	case workflow.KindSentiment:
		p, err := r.Sentiments()
		if err != nil {
			return nil, err
		}
		return p.Labels(), nil
	case workflow.KindThemeExtraction:
		p, err := r.Extractions()
		if err != nil {
			return nil, err
		}
		return p.Elements(), nil
	}
	return nil, fmt.Errorf("%s result is not consumable as a text input", r.Kind)
}
