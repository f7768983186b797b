package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-workflow", "flows/reviews.hcl",
		"-data", "reviews.txt",
		"-base-url", "https://api.example.test",
		"-cache-dir", "/tmp/pulse-cache",
		"-workers", "8",
		"-best-effort",
		"-timeout", "90s",
		"-fast",
		"-log-format", "json",
		"-log-level", "debug",
	}, &out)

	require.NoError(t, err)
	require.False(t, exit)
	require.NotNil(t, cfg)

	assert.Equal(t, "flows/reviews.hcl", cfg.WorkflowPath)
	assert.Equal(t, "reviews.txt", cfg.DataPath)
	assert.Equal(t, "https://api.example.test", cfg.BaseURL)
	assert.Equal(t, "/tmp/pulse-cache", cfg.CacheDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.BestEffort)
	assert.Equal(t, 90*time.Second, cfg.WaitTimeout)
	assert.True(t, cfg.Fast)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_WorkflowPathSelection(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"long flag", []string{"-workflow", "a.hcl"}, "a.hcl"},
		{"shorthand", []string{"-f", "b.hcl"}, "b.hcl"},
		{"positional", []string{"c.hcl"}, "c.hcl"},
		{"long flag wins over positional", []string{"-workflow", "a.hcl", "c.hcl"}, "a.hcl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)
			require.NoError(t, err)
			require.False(t, exit)
			assert.Equal(t, tc.want, cfg.WorkflowPath)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"flow.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.BestEffort)
	assert.Zero(t, cfg.WaitTimeout)
	assert.False(t, cfg.Fast)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"bad log format", []string{"-log-format", "yaml", "flow.hcl"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "loud", "flow.hcl"}, "invalid log-level"},
		{"negative timeout", []string{"-timeout", "-5s", "flow.hcl"}, "invalid timeout"},
		{"unknown flag", []string{"-frobnicate", "flow.hcl"}, "flag provided but not defined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)
			require.Error(t, err)
			assert.False(t, exit)
			assert.Nil(t, cfg)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestParse_LogOptionsAreCaseInsensitive(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"-log-format", "JSON", "-log-level", "WARN", "flow.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
}
