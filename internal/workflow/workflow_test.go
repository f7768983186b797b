package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_KindAliasing(t *testing.T) {
	t.Parallel()

	wf := New().
		Sentiment().
		Sentiment().
		ThemeGeneration(ThemeGenerationConfig{}).
		Sentiment()
	require.NoError(t, wf.Err())

	ids := make([]string, 0, len(wf.Steps()))
	for _, s := range wf.Steps() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"sentiment", "sentiment_2", "theme_generation", "sentiment_3"}, ids)
}

func TestBuilder_ExplicitNames(t *testing.T) {
	t.Parallel()

	t.Run("explicit name is kept", func(t *testing.T) {
		wf := New().Sentiment(WithName("mood"))
		require.NoError(t, wf.Err())
		assert.Equal(t, "mood", wf.Steps()[0].ID)
	})

	t.Run("duplicate explicit name fails", func(t *testing.T) {
		wf := New().
			Sentiment(WithName("mood")).
			Cluster(WithName("mood"))
		assert.ErrorContains(t, wf.Err(), `"mood" already registered`)
	})

	t.Run("name colliding with a source fails", func(t *testing.T) {
		wf := New().
			Source("reviews", []string{"a"}).
			Sentiment(WithName("reviews"))
		assert.ErrorContains(t, wf.Err(), "already registered")
	})
}

func TestBuilder_SourceValidation(t *testing.T) {
	t.Parallel()

	t.Run("duplicate source fails", func(t *testing.T) {
		wf := New().
			Source("reviews", []string{"a"}).
			Source("reviews", []string{"b"})
		assert.ErrorContains(t, wf.Err(), `source "reviews" already registered`)
	})

	t.Run("source items are copied", func(t *testing.T) {
		items := []string{"a", "b"}
		wf := New().Source("reviews", items)
		items[0] = "mutated"
		assert.Equal(t, "a", wf.Sources()["reviews"][0])
	})
}

func TestBuilder_References(t *testing.T) {
	t.Parallel()

	t.Run("default dataset is always addressable", func(t *testing.T) {
		wf := New().Sentiment()
		require.NoError(t, wf.Err())
		assert.Equal(t, DefaultSource, wf.Steps()[0].TextInput())
	})

	t.Run("unknown input fails", func(t *testing.T) {
		wf := New().Sentiment(WithInput("nope"))
		assert.ErrorContains(t, wf.Err(), `unknown input "nope"`)
	})

	t.Run("step may feed a later step", func(t *testing.T) {
		wf := New().
			ThemeGeneration(ThemeGenerationConfig{}).
			Sentiment(WithInput("theme_generation"))
		require.NoError(t, wf.Err())
	})

	t.Run("forward reference fails", func(t *testing.T) {
		wf := New().
			Sentiment(WithInput("theme_generation")).
			ThemeGeneration(ThemeGenerationConfig{})
		assert.ErrorContains(t, wf.Err(), "unknown input")
	})
}

func TestBuilder_ThemeWiring(t *testing.T) {
	t.Parallel()

	t.Run("themes_from on a non-theme consumer fails", func(t *testing.T) {
		wf := New().Sentiment(WithThemesFrom("somewhere"))
		assert.ErrorContains(t, wf.Err(), "does not accept a themes_from")
	})

	t.Run("static themes and themes_from are mutually exclusive", func(t *testing.T) {
		wf := New().
			ThemeGeneration(ThemeGenerationConfig{}).
			ThemeAllocation(
				ThemeAllocationConfig{Themes: []string{"price"}},
				WithThemesFrom("theme_generation"),
			)
		assert.ErrorContains(t, wf.Err(), "mutually exclusive")
	})

	t.Run("unknown themes_from fails", func(t *testing.T) {
		wf := New().ThemeAllocation(ThemeAllocationConfig{}, WithThemesFrom("nope"))
		assert.ErrorContains(t, wf.Err(), `unknown themes_from "nope"`)
	})
}

func TestBuilder_ErrorStopsLaterCalls(t *testing.T) {
	t.Parallel()

	wf := New().
		Sentiment(WithInput("nope")).
		Cluster()
	require.Error(t, wf.Err())
	assert.Len(t, wf.Steps(), 0)
}

func TestConfigNormalization(t *testing.T) {
	t.Parallel()

	t.Run("theme generation defaults", func(t *testing.T) {
		cfg := ThemeGenerationConfig{}.Normalized().(ThemeGenerationConfig)
		assert.Equal(t, DefaultMinThemes, cfg.MinThemes)
		assert.Equal(t, DefaultMaxThemes, cfg.MaxThemes)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		cfg := ThemeGenerationConfig{MinThemes: 3, MaxThemes: 7}.Normalized().(ThemeGenerationConfig)
		assert.Equal(t, 3, cfg.MinThemes)
		assert.Equal(t, 7, cfg.MaxThemes)
	})

	t.Run("allocation defaults", func(t *testing.T) {
		cfg := ThemeAllocationConfig{}.Normalized().(ThemeAllocationConfig)
		require.NotNil(t, cfg.SingleLabel)
		assert.True(t, *cfg.SingleLabel)
		assert.Equal(t, DefaultThreshold, cfg.Threshold)
	})

	t.Run("zero config exists for every kind", func(t *testing.T) {
		for _, k := range Kinds() {
			cfg := ZeroConfig(k)
			require.NotNil(t, cfg, "kind %s", k)
			assert.Equal(t, k, cfg.Kind())
		}
	})
}

func TestStep_DependsOn(t *testing.T) {
	t.Parallel()

	s := &Step{
		Kind:       KindThemeAllocation,
		Config:     ThemeAllocationConfig{},
		Input:      "reviews",
		ThemesFrom: "theme_generation",
	}
	assert.Equal(t, []string{"reviews", "theme_generation"}, s.DependsOn())

	// Same name on both roles yields a single dependency.
	s.ThemesFrom = "reviews"
	assert.Equal(t, []string{"reviews"}, s.DependsOn())
}
