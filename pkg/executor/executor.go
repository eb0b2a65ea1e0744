package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yesoreyeram/dagflow/pkg/config"
	"github.com/yesoreyeram/dagflow/pkg/logging"
	"github.com/yesoreyeram/dagflow/pkg/node"
	"github.com/yesoreyeram/dagflow/pkg/types"
	"github.com/yesoreyeram/dagflow/pkg/workflow"
)

// Telemetry receives per-element and per-node execution measurements.
// A *telemetry.Provider satisfies it; a nil field disables recording.
type Telemetry interface {
	RecordElementExecution(ctx context.Context, nodeID, dirName string, duration time.Duration, success bool)
	RecordNodeCompletion(ctx context.Context, nodeID string, duration time.Duration)
}

// Config bounds how many (node, element) pairs Run may execute at once and
// optionally carries a Telemetry sink for execution measurements.
type Config struct {
	MaxConcurrency int
	Telemetry      Telemetry
}

// DefaultConfig derives an executor Config from the engine-wide config.
func DefaultConfig(cfg *config.Config) Config {
	max := 1
	if cfg != nil && cfg.MaxConcurrentElements > 0 {
		max = cfg.MaxConcurrentElements
	}
	return Config{MaxConcurrency: max}
}

// NodeResult is one child node's outcome.
type NodeResult struct {
	Name     string
	Elements int
	Failed   bool
	Err      error // first element error when Failed, else nil
}

// Result is the outcome of driving an entire workflow to completion.
type Result struct {
	NodeResults []NodeResult
	Output      map[string]interface{}
}

// element is one unit of dispatch: an outer multi-index, plus an inner
// index (-1 when the node has no inner splitter for this outer element).
type element struct {
	ind      []int
	indInner int
}

// Run prepares wf against wfInputs and drives every child node to
// completion in topological order, running each node's elements
// concurrently under cfg.MaxConcurrency.
func Run(ctx context.Context, wf *workflow.Workflow, wfInputs types.Record, cfg Config, logger *logging.Logger) (*Result, error) {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	if err := wf.Prepare(wfInputs); err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	children, err := wf.Children()
	if err != nil {
		return nil, err
	}

	result := &Result{NodeResults: make([]NodeResult, 0, len(children))}

	for _, n := range children {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		nr, err := runNode(ctx, n, cfg, logger)
		result.NodeResults = append(result.NodeResults, nr)
		if err != nil {
			return result, err
		}
	}

	result.Output = wf.GetOutput()
	return result, nil
}

// runNode dispatches every element of n concurrently, bounded by
// cfg.MaxConcurrency. A failed element marks the node failed but does not
// stop its siblings; every independent element still runs to completion.
func runNode(ctx context.Context, n *node.Node, cfg Config, logger *logging.Logger) (NodeResult, error) {
	nr := NodeResult{Name: n.Name()}
	nodeStart := time.Now()

	// Inner-splitter values depend on upstream per-element outputs, which
	// exist only now that every upstream node has completed. Fill them in
	// before enumerating this node's elements so InnerLen and DirNameFor
	// see the real per-parent lengths.
	if err := n.PropagateInnerValues(); err != nil {
		return nr, err
	}

	elements, err := n.AllElements()
	if err != nil {
		return nr, err
	}

	var queue []element
	var expected []string
	for ind := range elements {
		if innerLen := n.InnerLen(ind); innerLen > 0 {
			for i := 0; i < innerLen; i++ {
				queue = append(queue, element{ind: ind, indInner: i})
				name, err := n.DirNameFor(ind, i)
				if err != nil {
					return nr, err
				}
				expected = append(expected, name)
			}
			continue
		}
		queue = append(queue, element{ind: ind, indInner: -1})
		name, err := n.DirNameFor(ind, -1)
		if err != nil {
			return nr, err
		}
		expected = append(expected, name)
	}
	nr.Elements = len(queue)

	// An element failure marks the node failed but never pre-empts its
	// siblings: independent elements keep running and persisting their
	// results. Only external cancellation (ctx) stops dispatch.
	sem := make(chan struct{}, cfg.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, el := range queue {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(el element) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			elStart := time.Now()
			dirName, _, err := n.RunElement(el.ind, el.indInner)
			if cfg.Telemetry != nil {
				cfg.Telemetry.RecordElementExecution(ctx, n.Name(), dirName, time.Since(elStart), err == nil)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s[%s]: %w", n.Name(), dirName, err)
				}
				mu.Unlock()
				if logger != nil {
					logger.WithNodeID(n.Name()).WithDirName(dirName).WithError(err).Error("element failed")
				}
			}
		}(el)
	}
	wg.Wait()

	if firstErr != nil {
		nr.Failed = true
		nr.Err = firstErr
		return nr, fmt.Errorf("%w: %v", ErrElementFailed, firstErr)
	}

	if !n.CheckAllResults(expected, n.OutputFieldNames()) {
		nr.Failed = true
		return nr, fmt.Errorf("%w: %s", ErrNodeIncomplete, n.Name())
	}
	if cfg.Telemetry != nil {
		cfg.Telemetry.RecordNodeCompletion(ctx, n.Name(), time.Since(nodeStart))
	}
	return nr, nil
}
