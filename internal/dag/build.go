package dag

import (
	"context"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// Options controls graph construction policy.
type Options struct {
	// AutoInsert synthesizes a default theme generation step upstream of
	// an allocation or extraction step that needs dynamic themes when the
	// workflow declares no generation step. When disabled, such a
	// declaration is a configuration error.
	AutoInsert bool
}

// DefaultOptions enables auto-insertion.
func DefaultOptions() Options {
	return Options{AutoInsert: true}
}

// Build constructs a validated execution graph from a workflow declaration
// and the run's primary dataset. It fails fast — before any remote call —
// on unresolvable names, duplicate identifiers, and cycles.
func Build(ctx context.Context, wf *workflow.Workflow, dataset []string, opts Options) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	if wf == nil {
		return nil, configErrf("nil workflow")
	}
	if err := wf.Err(); err != nil {
		return nil, &ConfigError{Reason: "invalid declaration", Err: err}
	}

	// Work on copies: the caller's steps stay immutable, resolved theme
	// wiring is materialized only on the graph's copies.
	steps := make([]*workflow.Step, 0, len(wf.Steps()))
	for _, s := range wf.Steps() {
		c := *s
		steps = append(steps, &c)
	}

	taken := make(map[string]struct{}, len(steps)+len(wf.SourceNames()))
	for _, name := range wf.SourceNames() {
		taken[name] = struct{}{}
	}
	for _, s := range steps {
		taken[s.ID] = struct{}{}
	}

	steps, err := wireThemes(ctx, steps, taken, opts)
	if err != nil {
		return nil, err
	}

	graph := &Graph{Nodes: make(map[string]*Node)}
	decl := 0

	for _, name := range wf.SourceNames() {
		graph.addNode(&Node{ID: name, Type: SourceNode, Items: wf.Sources()[name], declOrder: decl})
		decl++
	}

	// The primary dataset is addressable under its reserved name unless the
	// caller registered an explicit source with it.
	if _, ok := graph.Nodes[workflow.DefaultSource]; !ok {
		if referencesDataset(steps) {
			if dataset == nil {
				return nil, configErrf("workflow reads the primary dataset but none was supplied")
			}
			graph.addNode(&Node{ID: workflow.DefaultSource, Type: SourceNode, Items: dataset, declOrder: decl})
			decl++
		}
	}

	for _, s := range steps {
		if _, exists := graph.Nodes[s.ID]; exists {
			return nil, configErrf("duplicate identifier %q", s.ID)
		}
		graph.addNode(&Node{ID: s.ID, Type: StepNode, Step: s, declOrder: decl})
		decl++
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn() {
			if _, ok := graph.Nodes[dep]; !ok {
				return nil, configErrf("step %q references unknown input %q", s.ID, dep)
			}
			if err := graph.addEdge(dep, s.ID); err != nil {
				return nil, &ConfigError{Reason: "linking dependencies", Err: err}
			}
		}
	}

	if err := graph.detectCycles(); err != nil {
		return nil, &ConfigError{Reason: "validating dependency graph", Err: err}
	}
	if err := graph.seal(); err != nil {
		return nil, &ConfigError{Reason: "ordering dependency graph", Err: err}
	}

	logger.Debug("Execution graph built.", "nodes", len(graph.Nodes), "steps", len(graph.Order()))
	return graph, nil
}

// wireThemes resolves dynamic theme wiring in declaration order. A step
// needing themes takes the nearest theme generation step declared before
// it, falling back to any generation step in the workflow. When none exists
// a single default generation step is synthesized (once, before ordering)
// upstream of the first step that needs it, reading the same text input.
func wireThemes(ctx context.Context, steps []*workflow.Step, taken map[string]struct{}, opts Options) ([]*workflow.Step, error) {
	logger := ctxlog.FromContext(ctx)

	var firstGen string
	for _, s := range steps {
		if s.Kind == workflow.KindThemeGeneration {
			firstGen = s.ID
			break
		}
	}

	out := make([]*workflow.Step, 0, len(steps)+1)
	var inserted *workflow.Step

	for i, s := range steps {
		if s.NeedsThemes() && len(s.StaticThemes()) == 0 && s.ThemesFrom == "" {
			alias := ""
			for j := i - 1; j >= 0; j-- {
				if steps[j].Kind == workflow.KindThemeGeneration {
					alias = steps[j].ID
					break
				}
			}
			if alias == "" {
				alias = firstGen
			}
			if alias == "" && inserted != nil {
				alias = inserted.ID
			}
			if alias == "" {
				if !opts.AutoInsert {
					return nil, configErrf("step %q requires themes but the workflow declares no theme_generation step", s.ID)
				}
				id := string(workflow.KindThemeGeneration)
				if _, clash := taken[id]; clash {
					return nil, configErrf("cannot synthesize %q step: identifier already registered", id)
				}
				inserted = &workflow.Step{
					ID:     id,
					Kind:   workflow.KindThemeGeneration,
					Config: workflow.ZeroConfig(workflow.KindThemeGeneration),
					Input:  s.Input,
				}
				taken[id] = struct{}{}
				out = append(out, inserted)
				alias = id
				logger.Debug("Synthesized default theme generation step.", "for_step", s.ID, "input", inserted.TextInput())
			}
			s.ThemesFrom = alias
		}
		out = append(out, s)
	}
	return out, nil
}

func referencesDataset(steps []*workflow.Step) bool {
	for _, s := range steps {
		for _, dep := range s.DependsOn() {
			if dep == workflow.DefaultSource {
				return true
			}
		}
	}
	return false
}
