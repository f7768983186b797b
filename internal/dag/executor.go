package dag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-analytics/pulse-go/internal/cache"
	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/job"
	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// DefaultWorkers bounds concurrent step execution when the caller does not
// choose a pool size.
const DefaultWorkers = 4

// ExecConfig tunes one executor. Zero values select the defaults; the zero
// policy is fail-fast.
type ExecConfig struct {
	// Workers is the size of the execution pool. One worker yields strict
	// sequential execution in scheduled order.
	Workers int
	// BestEffort continues independent branches after a failure and
	// reports a per-step error map instead of aborting on the first one.
	BestEffort bool
	// WaitTimeout bounds each deferred job wait, not the run as a whole.
	WaitTimeout time.Duration
	// Fast is the run-level fast flag; per-step declarations override it.
	Fast bool
	// Cache is the memo store consulted before every remote call. Nil
	// constructs a process-local in-memory store.
	Cache *cache.Store
	// Monitor hosts deferred jobs. Nil constructs one over the transport.
	Monitor *job.Monitor
}

// Executor drives a sealed graph to completion.
type Executor struct {
	graph     *Graph
	transport transport.Transport
	monitor   *job.Monitor
	cache     *cache.Store

	workers     int
	bestEffort  bool
	waitTimeout time.Duration
	fast        bool

	results *Results
	wg      sync.WaitGroup
}

// NewExecutor assembles an executor for one run of the graph. The cache may
// be shared across runs; the graph and result store may not.
func NewExecutor(g *Graph, t transport.Transport, cfg ExecConfig) *Executor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	store := cfg.Cache
	if store == nil {
		store = cache.NewStore(cache.NewMemory(0))
	}
	monitor := cfg.Monitor
	if monitor == nil {
		monitor = job.NewMonitor(t, t)
	}
	return &Executor{
		graph:       g,
		transport:   t,
		monitor:     monitor,
		cache:       store,
		workers:     workers,
		bestEffort:  cfg.BestEffort,
		waitTimeout: cfg.WaitTimeout,
		fast:        cfg.Fast,
		results:     newResults(g.Order()),
	}
}

// Run executes the graph and returns the run's result store. Under the
// default policy the first real failure aborts the run: no new steps are
// dispatched and no new polls are issued, though in-flight remote work is
// not retracted. Under best-effort, independent branches complete and the
// error is a RunError mapping step identifiers to failures.
func (e *Executor) Run(ctx context.Context) (*Results, error) {
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, n := range e.graph.order {
		if n.depCount.Load() == 0 {
			readyChan <- n
			rootCount++
		}
	}
	logger.Debug("Executor starting.", "roots", rootCount, "workers", e.workers)

	e.wg.Add(len(e.graph.Nodes))
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}
	e.wg.Wait()
	close(readyChan)

	return e.results, e.collectErrors(ctx)
}

// worker is the processing loop of one pool member.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx).With("worker", workerID)

	for node := range readyChan {
		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				logger.Warn("Run cancelled, not starting node.", "node", node.ID)
				node.setState(Failed)
				node.Err = ctx.Err()
				e.wg.Done()
				e.skipDependents(ctx, node)
			})
			continue
		}

		node.setState(Running)
		var err error
		switch node.Type {
		case SourceNode:
			// Sources carry their content; nothing to execute.
		case StepNode:
			err = e.executeStepNode(ctx, node)
		}

		if err != nil {
			logger.Error("Node execution failed.", "node", node.ID, "error", err)
			node.setState(Failed)
			node.Err = err
			if !e.bestEffort {
				cancel()
			}
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		node.setState(Done)
		for _, dependent := range node.dependentsOrdered {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// skipDependents transitively marks downstream nodes as failed symptoms of
// this node's failure.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.dependentsOrdered {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping node due to upstream failure.", "node", dependent.ID, "failed_dependency", node.ID)
			dependent.setState(Failed)
			dependent.Err = fmt.Errorf("%w of %q", ErrSkipped, node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// collectErrors aggregates per-node outcomes after the pool drains. The
// scan follows scheduled order so the surfaced failure is deterministic.
func (e *Executor) collectErrors(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	failures := make(map[string]error)
	var firstCause error
	for _, n := range e.graph.order {
		if n.Type != StepNode || n.State() != Failed {
			continue
		}
		failures[n.ID] = n.Err
		if firstCause == nil && !errors.Is(n.Err, ErrSkipped) && !errors.Is(n.Err, context.Canceled) {
			firstCause = n.Err
		}
	}

	if len(failures) == 0 {
		return nil
	}
	logger.Error("Run finished with failures.", "failed_steps", len(failures))
	if e.bestEffort {
		return &RunError{Failures: failures}
	}
	if firstCause != nil {
		return firstCause
	}
	// Only symptoms remain: the run was cancelled from outside.
	return ctx.Err()
}
