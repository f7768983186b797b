package workflow

// Config is the kind-specific configuration record attached to a Step.
// Normalized returns a copy with every default value materialized, so that
// two declarations meaning the same thing serialize identically (the cache
// fingerprints normalized configs, never raw ones).
type Config interface {
	Kind() Kind
	Normalized() Config
}

// Defaults applied during normalization.
const (
	DefaultMinThemes = 2
	DefaultMaxThemes = 10
	DefaultThreshold = 0.5
)

// ThemeGenerationConfig configures a theme generation step.
type ThemeGenerationConfig struct {
	MinThemes int    `json:"min_themes"`
	MaxThemes int    `json:"max_themes"`
	Context   string `json:"context,omitempty"`
}

func (ThemeGenerationConfig) Kind() Kind { return KindThemeGeneration }

func (c ThemeGenerationConfig) Normalized() Config {
	if c.MinThemes == 0 {
		c.MinThemes = DefaultMinThemes
	}
	if c.MaxThemes == 0 {
		c.MaxThemes = DefaultMaxThemes
	}
	return c
}

// ThemeAllocationConfig configures a theme allocation step. Themes pins a
// static theme list; when empty the themes are wired from another step via
// the step's ThemesFrom reference.
type ThemeAllocationConfig struct {
	Themes      []string `json:"themes,omitempty"`
	SingleLabel *bool    `json:"single_label,omitempty"`
	Threshold   float64  `json:"threshold"`
}

func (ThemeAllocationConfig) Kind() Kind { return KindThemeAllocation }

func (c ThemeAllocationConfig) Normalized() Config {
	if c.SingleLabel == nil {
		v := true
		c.SingleLabel = &v
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// ThemeExtractionConfig configures a theme extraction step.
type ThemeExtractionConfig struct {
	Themes  []string `json:"themes,omitempty"`
	Version string   `json:"version,omitempty"`
}

func (ThemeExtractionConfig) Kind() Kind { return KindThemeExtraction }

func (c ThemeExtractionConfig) Normalized() Config { return c }

// SentimentConfig configures a sentiment step.
type SentimentConfig struct{}

func (SentimentConfig) Kind() Kind         { return KindSentiment }
func (c SentimentConfig) Normalized() Config { return c }

// ClusterConfig configures a clustering step.
type ClusterConfig struct{}

func (ClusterConfig) Kind() Kind           { return KindCluster }
func (c ClusterConfig) Normalized() Config { return c }

// EmbeddingsConfig configures an embeddings step.
type EmbeddingsConfig struct{}

func (EmbeddingsConfig) Kind() Kind           { return KindEmbeddings }
func (c EmbeddingsConfig) Normalized() Config { return c }

// ZeroConfig returns the zero-value config for a kind. Used when the graph
// builder synthesizes a default upstream step.
func ZeroConfig(k Kind) Config {
	switch k {
	case KindThemeGeneration:
		return ThemeGenerationConfig{}
	case KindThemeAllocation:
		return ThemeAllocationConfig{}
	case KindThemeExtraction:
		return ThemeExtractionConfig{}
	case KindSentiment:
		return SentimentConfig{}
	case KindCluster:
		return ClusterConfig{}
	case KindEmbeddings:
		return EmbeddingsConfig{}
	}
	return nil
}
