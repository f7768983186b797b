package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/dag"
	hclload "github.com/pulse-analytics/pulse-go/internal/hcl"
)

// Run executes the configured workflow end to end: load, build, execute,
// and print every step's artifact as one JSON document on the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	wf, err := hclload.Load(ctx, a.config.WorkflowPath)
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}
	a.logger.Debug("Workflow loaded.", "steps", len(wf.Steps()), "sources", len(wf.SourceNames()))

	var dataset []string
	if a.config.DataPath != "" {
		dataset, err = loadDataset(a.config.DataPath)
		if err != nil {
			return fmt.Errorf("load dataset %s: %w", a.config.DataPath, err)
		}
		a.logger.Debug("Dataset loaded.", "items", len(dataset))
	}

	graph, err := dag.Build(ctx, wf, dataset, dag.DefaultOptions())
	if err != nil {
		return fmt.Errorf("build workflow graph: %w", err)
	}
	a.logger.Debug("Workflow graph built.", "node_count", len(graph.Nodes))

	exec := dag.NewExecutor(graph, a.client, dag.ExecConfig{
		Workers:     a.config.Workers,
		BestEffort:  a.config.BestEffort,
		WaitTimeout: a.config.WaitTimeout,
		Fast:        a.config.Fast,
		Cache:       a.store,
	})

	a.logger.Info("Starting workflow execution.", "steps", len(graph.Order()))
	results, runErr := exec.Run(ctx)
	if results != nil {
		if printErr := a.printResults(results); printErr != nil && runErr == nil {
			runErr = printErr
		}
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("Workflow execution finished.", "completed", results.Len())
	return nil
}

// printResults writes the completed artifacts as a single JSON object keyed
// by step identifier.
func (a *App) printResults(results *dag.Results) error {
	doc := results.Completed()
	if len(doc) == 0 {
		return nil
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
