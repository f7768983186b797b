package workflow

import (
	"fmt"
	"sort"
)

// Workflow accumulates named sources and step declarations in order. The
// builder records the first declaration error it encounters and turns every
// later call into a no-op, so call sites can chain fluently and check Err
// (the graph builder checks it again before any execution).
type Workflow struct {
	sources     map[string][]string
	sourceOrder []string
	steps       []*Step
	kindCounts  map[Kind]int
	err         error
}

// New returns an empty workflow builder.
func New() *Workflow {
	return &Workflow{
		sources:    make(map[string][]string),
		kindCounts: make(map[Kind]int),
	}
}

// FromSteps wraps pre-wired sources and steps in a workflow without the
// builder's forward-reference checks. It exists for callers that assemble
// graphs from already-validated declarations (file loaders) and for wiring
// that the fluent builder cannot express; the graph builder still performs
// full reference and cycle validation.
func FromSteps(sources map[string][]string, steps []*Step) *Workflow {
	w := New()
	for name, items := range sources {
		w.sources[name] = append([]string(nil), items...)
	}
	for name := range sources {
		w.sourceOrder = append(w.sourceOrder, name)
	}
	sort.Strings(w.sourceOrder)
	w.steps = append(w.steps, steps...)
	for _, s := range steps {
		w.kindCounts[s.Kind]++
	}
	return w
}

// stepOptions collects the per-step declaration options.
type stepOptions struct {
	name       string
	input      string
	themesFrom string
	fast       *bool
}

// StepOption customizes a step declaration.
type StepOption func(*stepOptions)

// WithName assigns an explicit step identifier. It must be unique among
// sources and steps.
func WithName(name string) StepOption {
	return func(o *stepOptions) { o.name = name }
}

// WithInput names the source or upstream step providing the step's texts.
func WithInput(name string) StepOption {
	return func(o *stepOptions) { o.input = name }
}

// WithThemesFrom names the source or step providing the theme list for an
// allocation or extraction step.
func WithThemesFrom(name string) StepOption {
	return func(o *stepOptions) { o.themesFrom = name }
}

// WithFast overrides the run-level fast flag for this step.
func WithFast(fast bool) StepOption {
	return func(o *stepOptions) { o.fast = &fast }
}

// Source registers a named, immutable data source.
func (w *Workflow) Source(name string, items []string) *Workflow {
	if w.err != nil {
		return w
	}
	if name == "" {
		w.err = fmt.Errorf("source name must not be empty")
		return w
	}
	if _, ok := w.sources[name]; ok {
		w.err = fmt.Errorf("source %q already registered", name)
		return w
	}
	if w.stepByID(name) != nil {
		w.err = fmt.Errorf("source %q collides with a step identifier", name)
		return w
	}
	w.sources[name] = append([]string(nil), items...)
	w.sourceOrder = append(w.sourceOrder, name)
	return w
}

// ThemeGeneration declares a theme generation step.
func (w *Workflow) ThemeGeneration(cfg ThemeGenerationConfig, opts ...StepOption) *Workflow {
	return w.AddStep(cfg, opts...)
}

// ThemeAllocation declares a theme allocation step.
func (w *Workflow) ThemeAllocation(cfg ThemeAllocationConfig, opts ...StepOption) *Workflow {
	return w.AddStep(cfg, opts...)
}

// ThemeExtraction declares a theme extraction step.
func (w *Workflow) ThemeExtraction(cfg ThemeExtractionConfig, opts ...StepOption) *Workflow {
	return w.AddStep(cfg, opts...)
}

// Sentiment declares a sentiment analysis step.
func (w *Workflow) Sentiment(opts ...StepOption) *Workflow {
	return w.AddStep(SentimentConfig{}, opts...)
}

// Cluster declares a clustering step.
func (w *Workflow) Cluster(opts ...StepOption) *Workflow {
	return w.AddStep(ClusterConfig{}, opts...)
}

// Embeddings declares an embeddings step.
func (w *Workflow) Embeddings(opts ...StepOption) *Workflow {
	return w.AddStep(EmbeddingsConfig{}, opts...)
}

// AddStep declares a step from its configuration record. The kind-specific
// methods above are thin wrappers; file loaders call this directly.
func (w *Workflow) AddStep(cfg Config, opts ...StepOption) *Workflow {
	if w.err != nil {
		return w
	}
	if cfg == nil || !cfg.Kind().Valid() {
		w.err = fmt.Errorf("invalid step configuration: %#v", cfg)
		return w
	}
	kind := cfg.Kind()

	var o stepOptions
	for _, opt := range opts {
		opt(&o)
	}

	step := &Step{
		Kind:       kind,
		Config:     cfg,
		Input:      o.input,
		ThemesFrom: o.themesFrom,
		Fast:       o.fast,
	}

	if step.ThemesFrom != "" && !step.NeedsThemes() {
		w.err = fmt.Errorf("step kind %q does not accept a themes_from wiring", kind)
		return w
	}
	if step.ThemesFrom != "" && len(step.StaticThemes()) > 0 {
		w.err = fmt.Errorf("step kind %q: static themes and themes_from are mutually exclusive", kind)
		return w
	}

	// Identifier assignment mirrors declaration-order aliasing: the first
	// step of a kind keeps the kind name, later ones get numbered.
	if o.name != "" {
		if w.nameTaken(o.name) {
			w.err = fmt.Errorf("step name %q already registered", o.name)
			return w
		}
		step.ID = o.name
	} else {
		count := w.kindCounts[kind] + 1
		if count == 1 {
			step.ID = string(kind)
		} else {
			step.ID = fmt.Sprintf("%s_%d", kind, count)
		}
		if w.nameTaken(step.ID) {
			w.err = fmt.Errorf("step identifier %q already registered", step.ID)
			return w
		}
	}
	w.kindCounts[kind]++

	// Declared wiring must resolve to an already-known name. The default
	// dataset is always addressable even before the caller supplies it.
	if err := w.checkRef(step.TextInput(), "input", step.ID); err != nil {
		w.err = err
		return w
	}
	if step.ThemesFrom != "" {
		if err := w.checkRef(step.ThemesFrom, "themes_from", step.ID); err != nil {
			w.err = err
			return w
		}
	}

	w.steps = append(w.steps, step)
	return w
}

// checkRef validates that a declared reference resolves to a known source or
// a previously declared step.
func (w *Workflow) checkRef(name, what, stepID string) error {
	if name == DefaultSource {
		return nil
	}
	if _, ok := w.sources[name]; ok {
		return nil
	}
	if w.stepByID(name) != nil {
		return nil
	}
	return fmt.Errorf("unknown %s %q for step %q", what, name, stepID)
}

func (w *Workflow) nameTaken(name string) bool {
	if _, ok := w.sources[name]; ok {
		return true
	}
	return w.stepByID(name) != nil
}

func (w *Workflow) stepByID(id string) *Step {
	for _, s := range w.steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Steps returns the declared steps in declaration order.
func (w *Workflow) Steps() []*Step { return w.steps }

// Sources returns the registered sources keyed by name.
func (w *Workflow) Sources() map[string][]string { return w.sources }

// SourceNames returns source names in declaration order.
func (w *Workflow) SourceNames() []string { return w.sourceOrder }

// Err returns the first declaration error, if any.
func (w *Workflow) Err() error { return w.err }
