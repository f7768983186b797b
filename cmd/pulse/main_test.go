package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-analytics/pulse-go/internal/cli"
)

func TestRun_NoArgsPrintsUsageAndExitsCleanly(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, nil)
	require.NoError(t, err)
	assert.Contains(t, errW.String(), "Usage:")
}

func TestRun_MissingWorkflowFile(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{filepath.Join(t.TempDir(), "absent.hcl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load workflow")
}

func TestRun_InvalidFlagSurfacesExitError(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{"-log-level", "shout", "flow.hcl"})
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
