package executor

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/yesoreyeram/dagflow/pkg/cache"

	"github.com/yesoreyeram/dagflow/pkg/config"
	"github.com/yesoreyeram/dagflow/pkg/logging"
	"github.com/yesoreyeram/dagflow/pkg/node"
	"github.com/yesoreyeram/dagflow/pkg/task"
	"github.com/yesoreyeram/dagflow/pkg/types"
	"github.com/yesoreyeram/dagflow/pkg/workflow"
)

func newTestLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig())
}

func doubleTask(outputField string) node.Runnable {
	s := types.Spec{Fields: []types.Field{{Name: "x", Kind: types.FieldScalar}}}
	return node.WrapExprTask(task.NewExprTask("Double", "x * 2", s, outputField))
}

func incrementTask(inputField, outputField string) node.Runnable {
	s := types.Spec{Fields: []types.Field{{Name: inputField, Kind: types.FieldScalar}}}
	return node.WrapExprTask(task.NewExprTask("Increment", inputField+" + 1", s, outputField))
}

func TestRunTwoNodePipeline(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())

	if _, err := wf.Add("double", doubleTask("y"), nil); err != nil {
		t.Fatalf("Add(double): %v", err)
	}
	if err := wf.SplitNode("x", map[string][]interface{}{"x": {1, 2, 3}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}
	if _, err := wf.Add("inc", incrementTask("z", "w"), nil); err != nil {
		t.Fatalf("Add(inc): %v", err)
	}
	if err := wf.Connect("double", "y", "inc", "z"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := wf.Output("inc", "w", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	cfg := DefaultConfig(config.Testing())
	result, err := Run(context.Background(), wf, types.Record{}, cfg, newTestLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.NodeResults) != 2 {
		t.Fatalf("expected 2 node results, got %d", len(result.NodeResults))
	}
	for _, nr := range result.NodeResults {
		if nr.Failed {
			t.Fatalf("node %s unexpectedly failed", nr.Name)
		}
		if nr.Elements != 3 {
			t.Fatalf("expected 3 elements for %s, got %d", nr.Name, nr.Elements)
		}
	}

	byDir, ok := result.Output["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map[string]interface{} output for result, got %T", result.Output["result"])
	}
	if len(byDir) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(byDir))
	}
	if byDir["x:1"] != 3 {
		t.Fatalf("expected x:1 -> 3, got %v", byDir["x:1"])
	}
}

func TestRunSingleNodeRespectsConcurrencyLimit(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())
	if _, err := wf.Add("double", doubleTask("y"), nil); err != nil {
		t.Fatalf("Add(double): %v", err)
	}
	if err := wf.SplitNode("x", map[string][]interface{}{"x": {1, 2, 3, 4, 5}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}
	if err := wf.Output("double", "y", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	cfg := Config{MaxConcurrency: 2}
	result, err := Run(context.Background(), wf, types.Record{}, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	byDir, ok := result.Output["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map[string]interface{} output for result, got %T", result.Output["result"])
	}
	if len(byDir) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(byDir))
	}
}

func TestRunFailsOnUnresolvedWorkflowInput(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())
	if _, err := wf.Add("double", doubleTask("y"), map[string]string{"x": "missing"}); err != nil {
		t.Fatalf("Add(double): %v", err)
	}
	if err := wf.SplitNode("x", map[string][]interface{}{"x": {1}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}

	if _, err := Run(context.Background(), wf, types.Record{}, DefaultConfig(config.Default()), nil); err == nil {
		t.Fatalf("expected Run to fail on unresolved workflow input")
	}
}

func TestRunInnerSplitterFansOutPerParentElement(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())

	rangeSpec := types.Spec{Fields: []types.Field{{Name: "a", Kind: types.FieldScalar}}}
	if _, err := wf.Add("produce", node.WrapExprTask(task.NewExprTask("Range", "0..a", rangeSpec, "out")), nil); err != nil {
		t.Fatalf("Add(produce): %v", err)
	}
	if err := wf.SplitNode("a", map[string][]interface{}{"a": {1, 2}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}

	consume, err := wf.Add("consume", incrementTask("x", "out"), nil)
	if err != nil {
		t.Fatalf("Add(consume): %v", err)
	}
	if err := wf.Connect("produce", "out", "consume", "x"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := consume.RegisterInnerSplitter("x"); err != nil {
		t.Fatalf("RegisterInnerSplitter: %v", err)
	}
	if err := wf.Output("consume", "out", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	result, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 2}, newTestLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// a=1 fans out over [0 1], a=2 over [0 1 2]: five inner elements total.
	for _, nr := range result.NodeResults {
		if nr.Name == "consume" && nr.Elements != 5 {
			t.Fatalf("expected 5 consume elements, got %d", nr.Elements)
		}
	}
	byDir, ok := result.Output["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map[string]interface{} output, got %T", result.Output["result"])
	}
	if len(byDir) != 5 {
		t.Fatalf("expected 5 result elements, got %d: %v", len(byDir), byDir)
	}
	if byDir["a:2_x:2"] != 3 {
		t.Fatalf("expected a:2_x:2 -> 3, got %v", byDir["a:2_x:2"])
	}
}

func TestRunCombinerGroupsInAscendingElementOrder(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())

	addSpec := types.Spec{Fields: []types.Field{
		{Name: "x", Kind: types.FieldScalar},
		{Name: "y", Kind: types.FieldScalar},
	}}
	if _, err := wf.Add("add", node.WrapExprTask(task.NewExprTask("Add", "x + y", addSpec, "out")), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := wf.SplitNode("x × y", map[string][]interface{}{
		"x": {1, 2},
		"y": {10, 20, 30},
	}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}
	if err := wf.CombineNode([]string{"y"}); err != nil {
		t.Fatalf("CombineNode: %v", err)
	}
	if err := wf.Output("add", "out", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	result, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 3}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	byGroup, ok := result.Output["result"].(map[string][]interface{})
	if !ok {
		t.Fatalf("expected map[string][]interface{} output, got %T", result.Output["result"])
	}
	want := map[string][]interface{}{
		"x:1": {11, 21, 31},
		"x:2": {12, 22, 32},
	}
	if !reflect.DeepEqual(byGroup, want) {
		t.Fatalf("combined output mismatch: got %v, want %v", byGroup, want)
	}
}

// countingTask wraps a Runnable and counts how many times any clone's body
// actually executes, so cache-hit runs can be asserted to invoke nothing.
type countingTask struct {
	inner node.Runnable
	calls *int32
}

func (c countingTask) InputSpec() types.Spec     { return c.inner.InputSpec() }
func (c countingTask) OutputSpec() types.Spec    { return c.inner.OutputSpec() }
func (c countingTask) Checksum() (string, error) { return c.inner.Checksum() }
func (c countingTask) Bind(r types.Record)       { c.inner.Bind(r) }

func (c countingTask) Call(rerun bool) (types.Result, error) {
	atomic.AddInt32(c.calls, 1)
	return c.inner.Call(rerun)
}

func (c countingTask) Clone() node.Runnable {
	return countingTask{inner: c.inner.Clone(), calls: c.calls}
}

func TestRunSecondSubmissionHitsCacheWithoutInvocations(t *testing.T) {
	root := t.TempDir()
	c, err := cache.New(root)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	var calls int32

	run := func() {
		wf := workflow.New("wf", root, c, newTestLogger())
		if _, err := wf.Add("double", countingTask{inner: doubleTask("y"), calls: &calls}, nil); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := wf.SplitNode("x", map[string][]interface{}{"x": {1, 2, 3}}); err != nil {
			t.Fatalf("SplitNode: %v", err)
		}
		if err := wf.Output("double", "y", "result"); err != nil {
			t.Fatalf("Output: %v", err)
		}
		if _, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 2}, nil); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	run()
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 body invocations on first run, got %d", got)
	}
	run()
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected second run to load every element from cache, got %d invocations", got)
	}
}

func TestRunSplitWorkflowClonesChildrenPerElement(t *testing.T) {
	wf := workflow.New("wf", t.TempDir(), nil, newTestLogger())

	if _, err := wf.Add("double", doubleTask("y"), map[string]string{"x": "s"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := wf.Split("s", map[string][]interface{}{"s": {1, 2, 3}}); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := wf.Output("double", "y", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	result, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 2}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// One clone of the child per workflow element.
	if len(result.NodeResults) != 3 {
		t.Fatalf("expected 3 node runs, got %d", len(result.NodeResults))
	}
	byDir, ok := result.Output["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map[string]interface{} output, got %T", result.Output["result"])
	}
	want := map[string]interface{}{"s:1": 2, "s:2": 4, "s:3": 6}
	if !reflect.DeepEqual(byDir, want) {
		t.Fatalf("split workflow output mismatch: got %v, want %v", byDir, want)
	}
}

func TestRunSplitWorkflowWithCombinerGroupsElements(t *testing.T) {
	wf := workflow.New("wf", t.TempDir(), nil, newTestLogger())

	if _, err := wf.Add("double", doubleTask("y"), map[string]string{"x": "s"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := wf.Split("s", map[string][]interface{}{"s": {1, 2, 3}}); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := wf.Combine([]string{"s"}); err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if err := wf.Output("double", "y", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	result, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 2}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := wf.Result()["result"]
	if !reflect.DeepEqual(got, []interface{}{2, 4, 6}) {
		t.Fatalf("expected combined workflow output [2 4 6], got %v", got)
	}
	_ = result
}

func TestRunAggregatingConsumerAfterCombine(t *testing.T) {
	wf := workflow.New("wf", "/tmp/wf", nil, newTestLogger())

	squareSpec := types.Spec{Fields: []types.Field{{Name: "a", Kind: types.FieldScalar}}}
	if _, err := wf.Add("square", node.WrapExprTask(task.NewExprTask("Square", "a * a", squareSpec, "a2")), nil); err != nil {
		t.Fatalf("Add(square): %v", err)
	}
	if err := wf.SplitNode("a", map[string][]interface{}{"a": {1, 2, 3}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}
	if err := wf.CombineNode([]string{"a"}); err != nil {
		t.Fatalf("CombineNode: %v", err)
	}

	sumSpec := types.Spec{Fields: []types.Field{{Name: "a2", Kind: types.FieldSequenceScalar}}}
	if _, err := wf.Add("total", node.WrapExprTask(task.NewExprTask("Total", "sum(a2)", sumSpec, "out")), nil); err != nil {
		t.Fatalf("Add(total): %v", err)
	}
	if err := wf.Connect("square", "a2", "total", "a2"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := wf.Output("total", "out", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	result, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 2}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The consumer collapses to a single element and does not start until
	// every producer element has completed.
	for _, nr := range result.NodeResults {
		switch nr.Name {
		case "square":
			if nr.Elements != 3 {
				t.Fatalf("expected 3 square elements, got %d", nr.Elements)
			}
		case "total":
			if nr.Elements != 1 {
				t.Fatalf("expected 1 total element, got %d", nr.Elements)
			}
		}
	}
	got := wf.Result()["result"]
	if got != 14.0 {
		t.Fatalf("expected aggregated result 14, got %v", got)
	}
}

func TestRunElementFailureLeavesSiblingsRunning(t *testing.T) {
	wf := workflow.New("wf", t.TempDir(), nil, newTestLogger())

	divSpec := types.Spec{Fields: []types.Field{{Name: "x", Kind: types.FieldScalar}}}
	if _, err := wf.Add("div", node.WrapExprTask(task.NewExprTask("Div", "10 % (x - 2)", divSpec, "y")), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := wf.SplitNode("x", map[string][]interface{}{"x": {1, 2, 3}}); err != nil {
		t.Fatalf("SplitNode: %v", err)
	}
	if err := wf.Output("div", "y", "result"); err != nil {
		t.Fatalf("Output: %v", err)
	}

	_, err := Run(context.Background(), wf, types.Record{}, Config{MaxConcurrency: 1}, nil)
	if err == nil {
		t.Fatalf("expected Run to report the failed element")
	}

	// The x:2 element takes an integer remainder by zero, which fails; its
	// siblings still ran and recorded
	// their results.
	child, ok := wf.Child("div")
	if !ok {
		t.Fatalf("missing child div")
	}
	byDir, ok := child.GetOutput()["y"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected per-element outputs, got %T", child.GetOutput()["y"])
	}
	if len(byDir) != 2 {
		t.Fatalf("expected the 2 healthy siblings to complete, got %d: %v", len(byDir), byDir)
	}
	if _, ok := byDir["x:1"]; !ok {
		t.Fatalf("expected x:1 to have completed, got %v", byDir)
	}
	if _, ok := byDir["x:3"]; !ok {
		t.Fatalf("expected x:3 to have completed, got %v", byDir)
	}
	if child.Status() != node.StatusFailed {
		t.Fatalf("expected node status failed, got %s", child.Status())
	}
}
