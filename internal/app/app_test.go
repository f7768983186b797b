package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("requires a workflow path", func(t *testing.T) {
		_, err := NewConfig(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WorkflowPath")
	})

	t.Run("environment fallbacks", func(t *testing.T) {
		t.Setenv("PULSE_BASE_URL", "https://env.example.test")
		t.Setenv("PULSE_API_KEY", "env-key")

		cfg, err := NewConfig(Config{WorkflowPath: "flow.hcl"})
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.test", cfg.BaseURL)
		assert.Equal(t, "env-key", cfg.APIKey)
	})

	t.Run("explicit values win over the environment", func(t *testing.T) {
		t.Setenv("PULSE_BASE_URL", "https://env.example.test")

		cfg, err := NewConfig(Config{
			WorkflowPath: "flow.hcl",
			BaseURL:      "https://flag.example.test",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://flag.example.test", cfg.BaseURL)
	})
}

func TestLoadDataset(t *testing.T) {
	t.Parallel()

	t.Run("skips blank lines and trims whitespace", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "reviews.txt")
		require.NoError(t, os.WriteFile(path, []byte("first\n\n  second  \n\t\nthird\n"), 0o644))

		items, err := loadDataset(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, items)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := loadDataset(filepath.Join(t.TempDir(), "absent.txt"))
		assert.Error(t, err)
	})

	t.Run("empty file yields no items", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		items, err := loadDataset(path)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json format emits json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := newLogger("info", "json", &buf)
		logger.Info("hello", "k", "v")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "v", record["k"])
	})

	t.Run("level filters lower records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := newLogger("warn", "text", &buf)
		logger.Info("dropped")
		logger.Warn("kept")

		out := buf.String()
		assert.NotContains(t, out, "dropped")
		assert.Contains(t, out, "kept")
	})
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	t.Run("cache directory is created", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "cache")
		var out, errW bytes.Buffer

		a, err := NewApp(&out, &errW, &Config{
			WorkflowPath: "flow.hcl",
			CacheDir:     dir,
			LogFormat:    "text",
			LogLevel:     "info",
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("memory-only cache without a directory", func(t *testing.T) {
		t.Parallel()
		var out, errW bytes.Buffer
		a, err := NewApp(&out, &errW, &Config{
			WorkflowPath: "flow.hcl",
			LogFormat:    "text",
			LogLevel:     "info",
		})
		require.NoError(t, err)
		assert.NoError(t, a.Close())
	})
}
