// Package hcl loads workflow declarations from .hcl files. A workflow file
// carries source blocks (named text collections) and step blocks (one per
// analysis), which the loader replays through the workflow builder in file
// order so that the same validation applies to declarations from files and
// from code.
package hcl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// hclFile is the top-level structure of one workflow file.
type hclFile struct {
	Sources []*hclSource `hcl:"source,block"`
	Steps   []*hclStep   `hcl:"step,block"`
}

// hclSource is a named, immutable text collection.
type hclSource struct {
	Name  string   `hcl:"name,label"`
	Items []string `hcl:"items"`
}

// hclStep is one step block. The label names the kind; the attribute set is
// the union over all kinds, validated per kind after decoding.
type hclStep struct {
	Kind       string  `hcl:"kind,label"`
	Name       string  `hcl:"name,optional"`
	Input      string  `hcl:"input,optional"`
	ThemesFrom string  `hcl:"themes_from,optional"`
	Fast       *bool   `hcl:"fast,optional"`

	MinThemes   int      `hcl:"min_themes,optional"`
	MaxThemes   int      `hcl:"max_themes,optional"`
	Context     string   `hcl:"context,optional"`
	Themes      []string `hcl:"themes,optional"`
	SingleLabel *bool    `hcl:"single_label,optional"`
	Threshold   float64  `hcl:"threshold,optional"`
	Version     string   `hcl:"version,optional"`
}

// Load parses every given path (files or directories, searched recursively
// for .hcl files) into a single workflow.
func Load(ctx context.Context, paths ...string) (*workflow.Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findWorkflowFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no workflow files found in %v", paths)
	}
	logger.Debug("Discovered workflow files.", "count", len(files))

	wf := workflow.New()
	parser := hclparse.NewParser()
	evalCtx := newEvalContext()
	for _, file := range files {
		if err := loadFile(wf, parser, evalCtx, file); err != nil {
			return nil, err
		}
	}
	if err := wf.Err(); err != nil {
		return nil, err
	}
	return wf, nil
}

// LoadFile parses a single workflow file.
func LoadFile(ctx context.Context, path string) (*workflow.Workflow, error) {
	return Load(ctx, path)
}

// newEvalContext exposes the process environment to workflow files as the
// `env` object, so declarations can read `env.PULSE_DATASET` and friends.
func newEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func loadFile(wf *workflow.Workflow, parser *hclparse.Parser, evalCtx *hcl.EvalContext, path string) error {
	hclF, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %w", path, diags)
	}

	var file hclFile
	if diags := gohcl.DecodeBody(hclF.Body, evalCtx, &file); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", path, diags)
	}

	for _, src := range file.Sources {
		wf.Source(src.Name, src.Items)
	}
	for _, step := range file.Steps {
		cfg, err := step.config()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		wf.AddStep(cfg, step.options()...)
	}
	return wf.Err()
}

// config assembles the kind-specific configuration record and rejects
// attributes that do not belong to the declared kind.
func (s *hclStep) config() (workflow.Config, error) {
	kind := workflow.Kind(s.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown step kind %q", s.Kind)
	}

	var cfg workflow.Config
	switch kind {
	case workflow.KindThemeGeneration:
		cfg = workflow.ThemeGenerationConfig{
			MinThemes: s.MinThemes,
			MaxThemes: s.MaxThemes,
			Context:   s.Context,
		}
	case workflow.KindThemeAllocation:
		cfg = workflow.ThemeAllocationConfig{
			Themes:      s.Themes,
			SingleLabel: s.SingleLabel,
			Threshold:   s.Threshold,
		}
	case workflow.KindThemeExtraction:
		cfg = workflow.ThemeExtractionConfig{
			Themes:  s.Themes,
			Version: s.Version,
		}
	case workflow.KindSentiment:
		cfg = workflow.SentimentConfig{}
	case workflow.KindCluster:
		cfg = workflow.ClusterConfig{}
	case workflow.KindEmbeddings:
		cfg = workflow.EmbeddingsConfig{}
	}

	if stray := s.strayAttributes(kind); len(stray) > 0 {
		return nil, fmt.Errorf("step kind %q does not accept %s", kind, strings.Join(stray, ", "))
	}
	return cfg, nil
}

// strayAttributes names the set attributes that the kind does not accept.
func (s *hclStep) strayAttributes(kind workflow.Kind) []string {
	var stray []string
	deny := func(name string, set bool) {
		if set {
			stray = append(stray, name)
		}
	}
	if kind != workflow.KindThemeGeneration {
		deny("min_themes", s.MinThemes != 0)
		deny("max_themes", s.MaxThemes != 0)
		deny("context", s.Context != "")
	}
	if kind != workflow.KindThemeAllocation {
		deny("single_label", s.SingleLabel != nil)
		deny("threshold", s.Threshold != 0)
	}
	if kind != workflow.KindThemeAllocation && kind != workflow.KindThemeExtraction {
		deny("themes", len(s.Themes) > 0)
		deny("themes_from", s.ThemesFrom != "")
	}
	if kind != workflow.KindThemeExtraction {
		deny("version", s.Version != "")
	}
	return stray
}

// options translates the common step attributes into builder options.
func (s *hclStep) options() []workflow.StepOption {
	var opts []workflow.StepOption
	if s.Name != "" {
		opts = append(opts, workflow.WithName(s.Name))
	}
	if s.Input != "" {
		opts = append(opts, workflow.WithInput(s.Input))
	}
	if s.ThemesFrom != "" {
		opts = append(opts, workflow.WithThemesFrom(s.ThemesFrom))
	}
	if s.Fast != nil {
		opts = append(opts, workflow.WithFast(*s.Fast))
	}
	return opts
}

// findWorkflowFiles expands the given paths: files are taken as-is,
// directories are searched recursively for .hcl files.
func findWorkflowFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
