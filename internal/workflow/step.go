package workflow

// DefaultSource is the reserved name of the primary dataset a run is given.
// Steps that declare no explicit input read from it.
const DefaultSource = "dataset"

// Step is a declared unit of analysis work. Steps are immutable once the
// builder has constructed them; the graph builder copies a Step when it
// needs to materialize resolved wiring.
type Step struct {
	// ID is unique within a workflow. The first step of a kind keeps the
	// kind name as its identifier, later ones are numbered (sentiment_2).
	ID string
	// Kind selects the analysis variant.
	Kind Kind
	// Config is the kind-specific configuration record.
	Config Config
	// Input names the source or upstream step providing this step's texts.
	// Empty means DefaultSource.
	Input string
	// ThemesFrom names the source or step providing the theme list for
	// allocation and extraction steps with no static theme list.
	ThemesFrom string
	// Fast overrides the run-level fast flag for this step when non-nil.
	Fast *bool
}

// TextInput returns the effective named text input.
func (s *Step) TextInput() string {
	if s.Input == "" {
		return DefaultSource
	}
	return s.Input
}

// DependsOn lists the names this step requires resolved before it can run,
// in a stable order: text input first, then the theme wiring if any.
func (s *Step) DependsOn() []string {
	deps := []string{s.TextInput()}
	if s.ThemesFrom != "" && s.ThemesFrom != s.TextInput() {
		deps = append(deps, s.ThemesFrom)
	}
	return deps
}

// StaticThemes returns the statically configured theme list, if the step
// kind carries one.
func (s *Step) StaticThemes() []string {
	switch c := s.Config.(type) {
	case ThemeAllocationConfig:
		return c.Themes
	case ThemeExtractionConfig:
		return c.Themes
	}
	return nil
}

// NeedsThemes reports whether the step consumes a theme list.
func (s *Step) NeedsThemes() bool {
	return s.Kind == KindThemeAllocation || s.Kind == KindThemeExtraction
}
