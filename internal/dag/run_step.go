package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulse-analytics/pulse-go/internal/cache"
	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/transport"
	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// executeStepNode resolves a step's inputs, consults the cache, and on a
// miss submits the work remotely — hosting a deferred job on the monitor —
// before recording the artifact in the run's result store.
func (e *Executor) executeStepNode(ctx context.Context, node *Node) error {
	step := node.Step
	logger := ctxlog.FromContext(ctx).With("step", step.ID)
	logger.Info("Starting step.", "kind", step.Kind)

	inputs, themeLabels, err := e.resolveInputs(node)
	if err != nil {
		return &StepError{StepID: step.ID, Err: err}
	}

	fast := e.fast
	if step.Fast != nil {
		fast = *step.Fast
	}

	digests := make([]cache.InputDigest, 0, len(inputs))
	for name, items := range inputs {
		digests = append(digests, cache.InputDigest{Name: name, Digest: cache.DigestItems(items)})
	}
	fp, err := cache.Compute(step.Kind, step.Config, fast, digests)
	if err != nil {
		return &StepError{StepID: step.ID, Err: err}
	}

	res, hit, err := e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*transport.Result, error) {
		return e.invoke(ctx, step, inputs, themeLabels, fast)
	})
	if err != nil {
		return &StepError{StepID: step.ID, Fingerprint: fp, Err: err}
	}
	if hit {
		logger.Info("Cache hit, remote call skipped.", "fingerprint", string(fp[:12]))
	}

	e.results.put(step.ID, res)
	logger.Info("Finished step.")
	return nil
}

// invoke performs the remote call for a cache miss: fast path or deferred
// path, then kind-specific finalization of the raw artifact.
func (e *Executor) invoke(ctx context.Context, step *workflow.Step, inputs map[string][]string, themeLabels []string, fast bool) (*transport.Result, error) {
	logger := ctxlog.FromContext(ctx).With("step", step.ID)

	outcome, err := e.transport.Submit(ctx, transport.Submission{
		Kind:   step.Kind,
		Config: step.Config.Normalized(),
		Inputs: inputs,
		Fast:   fast,
	})
	if err != nil {
		return nil, err
	}

	raw := outcome.Result
	if outcome.Job != nil {
		logger.Debug("Remote deferred the step, awaiting job.", "job_id", outcome.Job.ID)
		j := e.monitor.Track(*outcome.Job)
		raw, err = e.monitor.Wait(ctx, j, e.waitTimeout)
		if err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("transport returned neither result nor job")
	}
	return finalize(step, themeLabels, raw)
}

// resolveInputs assembles the named input items for a step from its
// dependency nodes. For theme-consuming steps it also returns the theme
// labels, which finalization embeds in the allocation artifact.
func (e *Executor) resolveInputs(node *Node) (map[string][]string, []string, error) {
	step := node.Step

	texts, err := e.itemsOf(node, step.TextInput())
	if err != nil {
		return nil, nil, err
	}
	inputs := map[string][]string{"texts": texts}

	if !step.NeedsThemes() {
		return inputs, nil, nil
	}

	labels, simTexts, err := e.resolveThemes(node, step)
	if err != nil {
		return nil, nil, err
	}
	switch step.Kind {
	case workflow.KindThemeAllocation:
		// Allocation compares texts against theme representatives; the
		// labels only name the rows of the derived artifact.
		inputs["themes"] = simTexts
	case workflow.KindThemeExtraction:
		inputs["themes"] = labels
	}
	return inputs, labels, nil
}

// itemsOf returns the text content of a dependency: source content
// directly, or the text view of an upstream step's artifact.
func (e *Executor) itemsOf(node *Node, name string) ([]string, error) {
	dep, ok := node.Deps[name]
	if !ok {
		return nil, fmt.Errorf("input %q is not a dependency of this step", name)
	}
	if dep.Type == SourceNode {
		return dep.Items, nil
	}
	res, err := e.results.Get(dep.ID)
	if err != nil {
		return nil, err
	}
	return res.Items()
}

// resolveThemes produces the theme labels and the texts used for
// similarity against them. Static themes serve as both; a generation
// artifact contributes short labels and representative texts; any other
// wired input contributes its text view for both.
func (e *Executor) resolveThemes(node *Node, step *workflow.Step) (labels, simTexts []string, err error) {
	if static := step.StaticThemes(); len(static) > 0 {
		return static, static, nil
	}
	dep, ok := node.Deps[step.ThemesFrom]
	if !ok {
		return nil, nil, fmt.Errorf("themes input %q is not a dependency of this step", step.ThemesFrom)
	}
	if dep.Type == SourceNode {
		return dep.Items, dep.Items, nil
	}
	res, err := e.results.Get(dep.ID)
	if err != nil {
		return nil, nil, err
	}
	if res.Kind == workflow.KindThemeGeneration {
		p, err := res.Themes()
		if err != nil {
			return nil, nil, err
		}
		labels = p.Labels()
		simTexts = make([]string, len(p.Themes))
		for i, t := range p.Themes {
			simTexts[i] = strings.Join(t.Representatives, " ")
		}
		return labels, simTexts, nil
	}
	items, err := res.Items()
	if err != nil {
		return nil, nil, err
	}
	return items, items, nil
}

// finalize applies kind-specific shaping to a raw remote artifact. Every
// kind of the closed set is handled; most pass through with their kind
// stamped, allocation folds the similarity matrix together with the theme
// labels and thresholding options into its derived artifact.
func finalize(step *workflow.Step, themeLabels []string, raw *transport.Result) (*transport.Result, error) {
	switch step.Kind {
	case workflow.KindThemeAllocation:
		shim := &transport.Result{Kind: workflow.KindCluster, Payload: raw.Payload}
		sim, err := shim.Similarity()
		if err != nil {
			return nil, err
		}
		matrix, err := sim.SimilarityMatrix()
		if err != nil {
			return nil, err
		}
		cfg := step.Config.Normalized().(workflow.ThemeAllocationConfig)
		return transport.EncodeResult(workflow.KindThemeAllocation, transport.AllocationPayload{
			Themes:      themeLabels,
			Similarity:  matrix,
			SingleLabel: *cfg.SingleLabel,
			Threshold:   cfg.Threshold,
		})
	case workflow.KindThemeGeneration, workflow.KindThemeExtraction,
		workflow.KindSentiment, workflow.KindCluster, workflow.KindEmbeddings:
		return &transport.Result{Kind: step.Kind, Payload: raw.Payload}, nil
	}
	return nil, fmt.Errorf("unknown step kind %q", step.Kind)
}
