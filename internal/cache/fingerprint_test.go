package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	inputs := []InputDigest{{Name: "texts", Digest: DigestItems([]string{"a", "b"})}}

	fp1, err := Compute(workflow.KindSentiment, workflow.SentimentConfig{}, false, inputs)
	require.NoError(t, err)
	fp2, err := Compute(workflow.KindSentiment, workflow.SentimentConfig{}, false, inputs)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, string(fp1), 64) // hex-encoded sha256
}

func TestCompute_InputOrderIndependent(t *testing.T) {
	t.Parallel()

	a := InputDigest{Name: "texts", Digest: DigestItems([]string{"a"})}
	b := InputDigest{Name: "themes", Digest: DigestItems([]string{"b"})}

	fp1, err := Compute(workflow.KindThemeAllocation, workflow.ThemeAllocationConfig{}, false, []InputDigest{a, b})
	require.NoError(t, err)
	fp2, err := Compute(workflow.KindThemeAllocation, workflow.ThemeAllocationConfig{}, false, []InputDigest{b, a})
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestCompute_NormalizationEquivalence(t *testing.T) {
	t.Parallel()

	// A zero-value config and one spelling out the defaults mean the same
	// work, so they must share a fingerprint.
	inputs := []InputDigest{{Name: "texts", Digest: DigestItems([]string{"a"})}}

	implicit, err := Compute(workflow.KindThemeGeneration, workflow.ThemeGenerationConfig{}, false, inputs)
	require.NoError(t, err)
	explicit, err := Compute(workflow.KindThemeGeneration, workflow.ThemeGenerationConfig{
		MinThemes: workflow.DefaultMinThemes,
		MaxThemes: workflow.DefaultMaxThemes,
	}, false, inputs)
	require.NoError(t, err)
	assert.Equal(t, implicit, explicit)
}

func TestCompute_Discriminants(t *testing.T) {
	t.Parallel()

	inputs := []InputDigest{{Name: "texts", Digest: DigestItems([]string{"a"})}}
	base, err := Compute(workflow.KindSentiment, workflow.SentimentConfig{}, false, inputs)
	require.NoError(t, err)

	t.Run("kind changes the fingerprint", func(t *testing.T) {
		fp, err := Compute(workflow.KindCluster, workflow.ClusterConfig{}, false, inputs)
		require.NoError(t, err)
		assert.NotEqual(t, base, fp)
	})

	t.Run("fast flag changes the fingerprint", func(t *testing.T) {
		fp, err := Compute(workflow.KindSentiment, workflow.SentimentConfig{}, true, inputs)
		require.NoError(t, err)
		assert.NotEqual(t, base, fp)
	})

	t.Run("input content changes the fingerprint", func(t *testing.T) {
		other := []InputDigest{{Name: "texts", Digest: DigestItems([]string{"b"})}}
		fp, err := Compute(workflow.KindSentiment, workflow.SentimentConfig{}, false, other)
		require.NoError(t, err)
		assert.NotEqual(t, base, fp)
	})

	t.Run("config changes the fingerprint", func(t *testing.T) {
		g1, err := Compute(workflow.KindThemeGeneration, workflow.ThemeGenerationConfig{MinThemes: 2}, false, inputs)
		require.NoError(t, err)
		g2, err := Compute(workflow.KindThemeGeneration, workflow.ThemeGenerationConfig{MinThemes: 3}, false, inputs)
		require.NoError(t, err)
		assert.NotEqual(t, g1, g2)
	})
}

func TestDigestItems_Framing(t *testing.T) {
	t.Parallel()

	// Length-prefixed framing keeps item boundaries unambiguous.
	assert.NotEqual(t, DigestItems([]string{"ab", "c"}), DigestItems([]string{"a", "bc"}))
	assert.NotEqual(t, DigestItems([]string{"a", "b"}), DigestItems([]string{"b", "a"}))
	assert.Equal(t, DigestItems([]string{"a", "b"}), DigestItems([]string{"a", "b"}))
	assert.NotEqual(t, DigestItems(nil), DigestItems([]string{""}))
}
