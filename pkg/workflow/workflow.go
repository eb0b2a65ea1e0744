package workflow

import (
	"fmt"
	"path"
	"sync"

	"github.com/yesoreyeram/dagflow/pkg/cache"
	"github.com/yesoreyeram/dagflow/pkg/graph"
	"github.com/yesoreyeram/dagflow/pkg/logging"
	"github.com/yesoreyeram/dagflow/pkg/node"
	"github.com/yesoreyeram/dagflow/pkg/splitter"
	"github.com/yesoreyeram/dagflow/pkg/state"
	"github.com/yesoreyeram/dagflow/pkg/types"
)

// edgeSource is one incoming connection recorded in connectedVar: an
// upstream child's field feeding one of toNode's own fields.
type edgeSource struct {
	FromNode  string
	FromField string
}

// wfInputBinding is one entry of needed_inp_wf: a workflow-level input field
// bound directly to a child's field.
type wfInputBinding struct {
	ChildName     string
	WorkflowField string
	ChildField    string
}

// outputBinding is one entry of wf_output_names.
type outputBinding struct {
	ChildName   string
	ChildField  string
	ExposedName string
}

// Workflow is a composite node: a DAG of child nodes wired
// outputs-to-inputs.
type Workflow struct {
	mu sync.RWMutex

	name       string
	workingDir string
	cache      *cache.Cache
	logger     *logging.Logger

	children  map[string]*node.Node
	lastAdded string

	connectedVar  map[string]map[string]edgeSource
	neededInpWf   []wfInputBinding
	wfOutputNames []outputBinding

	// A workflow may itself carry a splitter: the whole child DAG is then
	// cloned once per workflow element, each clone set rooted in that
	// element's directory, and innerNodes[child][i] is child's clone for
	// element i.
	splitterExpr string
	splitInputs  map[string][]interface{}
	combiner     []string
	wfState      *state.State
	elemDirs     []string
	elemKeys     []string
	innerNodes   map[string][]*node.Node

	prepared bool
}

// New constructs an empty workflow rooted at workingDir.
func New(name, workingDir string, c *cache.Cache, logger *logging.Logger) *Workflow {
	return &Workflow{
		name:         name,
		workingDir:   workingDir,
		cache:        c,
		logger:       logger,
		children:     make(map[string]*node.Node),
		connectedVar: make(map[string]map[string]edgeSource),
	}
}

// Name returns the workflow's identifier.
func (w *Workflow) Name() string { return w.name }

// Split sets a splitter on the workflow itself: every child is cloned once
// per workflow element during Prepare, and a workflow-input binding whose
// field is one of the splitter variables resolves to that element's value
// instead of a shared one. Idempotent only on an identical expression.
func (w *Workflow) Split(expr string, inputs map[string][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.splitterExpr != "" && w.splitterExpr != expr {
		return fmt.Errorf("%w: %q vs %q", ErrSplitterChanged, w.splitterExpr, expr)
	}
	if _, err := splitter.Parse(expr); err != nil {
		return err
	}
	w.splitterExpr = expr
	if w.splitInputs == nil {
		w.splitInputs = make(map[string][]interface{}, len(inputs))
	}
	for k, v := range inputs {
		w.splitInputs[k] = v
	}
	return nil
}

// Combine sets a combiner on the workflow itself, grouping its exposed
// outputs over the combined variables. Requires a prior Split.
func (w *Workflow) Combine(combiner []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.splitterExpr == "" {
		return ErrNoSplitter
	}
	w.combiner = combiner
	return nil
}

// Add ingests a runnable as a named child node. Each entry of edges has the
// form localField -> source, where source is either "upstreamChild.field"
// (resolved against an already-added child, recorded as a connect) or any
// other string (recorded as a binding to a workflow-level input named by
// source).
func (w *Workflow) Add(name string, runnable node.Runnable, edges map[string]string) (*node.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	childWorkingDir := path.Join(w.workingDir, name)
	n := node.New(name, childWorkingDir, runnable, w.cache, w.logger)
	w.children[name] = n
	w.lastAdded = name

	for localField, source := range edges {
		fromNode, fromField, ok := splitEdgeSource(source, w.children)
		if ok {
			w.connectLocked(fromNode, fromField, name, localField)
			continue
		}
		w.neededInpWf = append(w.neededInpWf, wfInputBinding{
			ChildName:     name,
			WorkflowField: source,
			ChildField:    localField,
		})
	}
	return n, nil
}

// splitEdgeSource reports whether source names "<child>.<field>" for an
// already-known child. Any other string is a workflow-input binding.
func splitEdgeSource(source string, known map[string]*node.Node) (string, string, bool) {
	for i := 0; i < len(source); i++ {
		if source[i] == '.' {
			childName, field := source[:i], source[i+1:]
			if _, ok := known[childName]; ok {
				return childName, field, true
			}
		}
	}
	return "", "", false
}

// Connect records an explicit intra-workflow edge.
func (w *Workflow) Connect(fromNode, fromField, toNode, toField string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.children[fromNode]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChild, fromNode)
	}
	if _, ok := w.children[toNode]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChild, toNode)
	}
	w.connectLocked(fromNode, fromField, toNode, toField)
	return nil
}

func (w *Workflow) connectLocked(fromNode, fromField, toNode, toField string) {
	if w.connectedVar[toNode] == nil {
		w.connectedVar[toNode] = make(map[string]edgeSource)
	}
	w.connectedVar[toNode][toField] = edgeSource{FromNode: fromNode, FromField: fromField}

	to := w.children[toNode]
	from := w.children[fromNode]
	to.ConnectUpstream(from)
	to.AddEdge(node.Edge{FromNode: fromNode, FromField: fromField, ToField: toField})
}

// ConnectWfInput binds a workflow-level input field directly to a child's
// field.
func (w *Workflow) ConnectWfInput(toNode, toField, workflowField string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.children[toNode]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChild, toNode)
	}
	w.neededInpWf = append(w.neededInpWf, wfInputBinding{
		ChildName:     toNode,
		WorkflowField: workflowField,
		ChildField:    toField,
	})
	return nil
}

// SplitNode sets the splitter on the most recently added child.
func (w *Workflow) SplitNode(expr string, inputs map[string][]interface{}) error {
	w.mu.RLock()
	last := w.lastAdded
	w.mu.RUnlock()
	if last == "" {
		return ErrNoChildren
	}
	return w.children[last].Split(expr, inputs)
}

// CombineNode sets the combiner on the most recently added child.
func (w *Workflow) CombineNode(combiner []string) error {
	w.mu.RLock()
	last := w.lastAdded
	w.mu.RUnlock()
	if last == "" {
		return ErrNoChildren
	}
	return w.children[last].Combine(combiner)
}

// Output declares one entry of wf_output_names: childField of childName is
// exposed under exposedName in GetOutput.
func (w *Workflow) Output(childName, childField, exposedName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.children[childName]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChild, childName)
	}
	for _, existing := range w.wfOutputNames {
		if existing.ExposedName == exposedName {
			return fmt.Errorf("%w: %s", ErrDuplicateOutputName, exposedName)
		}
	}
	w.wfOutputNames = append(w.wfOutputNames, outputBinding{
		ChildName:   childName,
		ChildField:  childField,
		ExposedName: exposedName,
	})
	return nil
}

// Child returns the named child node.
func (w *Workflow) Child(name string) (*node.Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.children[name]
	return n, ok
}

// TopoOrder returns the child names in topological order, per pkg/graph's
// Kahn's-algorithm sort over the recorded connectedVar edges.
func (w *Workflow) TopoOrder() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.topoOrderLocked()
}

func (w *Workflow) topoOrderLocked() ([]string, error) {
	nodes := make([]types.Node, 0, len(w.children))
	for name := range w.children {
		nodes = append(nodes, types.Node{ID: name})
	}
	var edges []types.Edge
	for toNode, byField := range w.connectedVar {
		for _, src := range byField {
			edges = append(edges, types.Edge{Source: src.FromNode, Target: toNode})
		}
	}
	g := graph.New(nodes, edges)
	return g.TopologicalSort()
}

// Children returns the nodes to execute, in dependency order. For a
// workflow with no splitter these are the children themselves; for a split
// workflow they are the per-element clones, element-major, so one
// element's whole DAG completes before the next element's begins.
func (w *Workflow) Children() ([]*node.Node, error) {
	order, err := w.TopoOrder()
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.wfState != nil {
		out := make([]*node.Node, 0, len(order)*len(w.elemDirs))
		for i := range w.elemDirs {
			for _, name := range order {
				out = append(out, w.innerNodes[name][i])
			}
		}
		return out, nil
	}
	out := make([]*node.Node, 0, len(order))
	for _, name := range order {
		out = append(out, w.children[name])
	}
	return out, nil
}

// Prepare runs the planning pass over every child in topological order:
// resolving needed_inp_wf bindings against wfInputs,
// inheriting a splitter across an intra-workflow edge when the downstream
// child declares none of its own (or an identical one), and finally
// planning each child's state.
func (w *Workflow) Prepare(wfInputs types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.topoOrderLocked()
	if err != nil {
		return err
	}

	if w.splitterExpr != "" {
		if err := w.prepareSplitLocked(order, wfInputs); err != nil {
			return err
		}
	} else {
		for _, name := range order {
			nn := w.children[name]
			if err := w.prepareChildLocked(name, nn, w.children, wfInputs, nil); err != nil {
				return err
			}
		}
	}

	w.prepared = true
	if w.logger != nil {
		w.logger.WithField("children", len(w.children)).Info("workflow prepared")
	}
	return nil
}

// prepareChildLocked resolves one child's workflow-input bindings, applies
// splitter inheritance against lookup (the child's sibling set — base
// children or one element's clone set), and plans its state. splitVals,
// when non-nil, carries the current workflow element's splitter values;
// a binding whose workflow field names one of them resolves per-element.
func (w *Workflow) prepareChildLocked(name string, nn *node.Node, lookup map[string]*node.Node, wfInputs types.Record, splitVals map[string]interface{}) error {
	for _, binding := range w.neededInpWf {
		if binding.ChildName != name {
			continue
		}
		if splitVals != nil {
			if v, ok := splitVals[binding.WorkflowField]; ok {
				nn.BindOwnInput(binding.ChildField, v)
				continue
			}
		}
		val, ok := wfInputs[binding.WorkflowField]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnresolvedInput, binding.WorkflowField)
		}
		nn.BindOwnInput(binding.ChildField, val)
	}

	if err := w.inheritSplitterLocked(name, nn, lookup); err != nil {
		return err
	}

	return nn.PrepareStateInput()
}

// prepareSplitLocked plans a split workflow: one state for the workflow's
// own axes, then a full clone of the child DAG per element, each clone
// rooted in that element's directory and bound to that element's splitter
// values.
func (w *Workflow) prepareSplitLocked(order []string, wfInputs types.Record) error {
	rpn, err := splitter.Parse(w.splitterExpr)
	if err != nil {
		return err
	}
	st, err := state.New(rpn, w.splitInputs)
	if err != nil {
		return err
	}
	if len(w.combiner) > 0 {
		if err := st.ApplyCombiner(w.combiner); err != nil {
			return err
		}
	}
	w.wfState = st
	w.elemDirs = nil
	w.elemKeys = nil
	w.innerNodes = make(map[string][]*node.Node, len(order))

	for ind := range st.AllElements() {
		values, err := st.StateValues(ind, -1)
		if err != nil {
			return err
		}
		wfDir := st.SurvivingDirName(values)
		if wfDir == "" {
			wfDir = state.IndexDirName(ind)
		}

		clones := make(map[string]*node.Node, len(order))
		for _, name := range order {
			clone, err := w.cloneChildLocked(name, wfDir)
			if err != nil {
				return err
			}
			clones[name] = clone
		}
		for toNode, byField := range w.connectedVar {
			for toField, src := range byField {
				clones[toNode].ConnectUpstream(clones[src.FromNode])
				clones[toNode].AddEdge(node.Edge{FromNode: src.FromNode, FromField: src.FromField, ToField: toField})
			}
		}
		for _, name := range order {
			if err := w.prepareChildLocked(name, clones[name], clones, wfInputs, values); err != nil {
				return err
			}
		}

		for _, name := range order {
			w.innerNodes[name] = append(w.innerNodes[name], clones[name])
		}
		w.elemDirs = append(w.elemDirs, wfDir)
		w.elemKeys = append(w.elemKeys, st.CombinedDirName(values))
	}
	return nil
}

// cloneChildLocked instantiates a fresh node carrying the base child's
// configuration (runnable, own inputs, splitter, combiner, inner-splitter
// registrations), rooted under the given workflow-element directory.
func (w *Workflow) cloneChildLocked(name, wfDir string) (*node.Node, error) {
	base := w.children[name]
	clone := node.New(name, path.Join(w.workingDir, wfDir, name), base.Runnable(), w.cache, w.logger)
	for f, v := range base.OwnInputs() {
		clone.BindOwnInput(f, v)
	}
	if expr := base.SplitterExpr(); expr != "" {
		if err := clone.Split(expr, base.SplitInputs()); err != nil {
			return nil, err
		}
	}
	if comb := base.Combiner(); comb != nil {
		if err := clone.Combine(comb); err != nil {
			return nil, err
		}
	}
	for _, f := range base.InnerSplitterFields() {
		if err := clone.RegisterInnerSplitter(f); err != nil {
			return nil, err
		}
	}
	return clone, nil
}

// inheritSplitterLocked propagates a splitter across an edge: if nn has no
// explicit splitter, or its splitter already equals an upstream's, adopt
// that upstream's splitter (its combined splitter, when the upstream has a
// combiner) by copying its expression and bound input sequences onto nn.
func (w *Workflow) inheritSplitterLocked(name string, nn *node.Node, lookup map[string]*node.Node) error {
	byField, ok := w.connectedVar[name]
	if !ok {
		return nil
	}
	for _, src := range byField {
		up, ok := lookup[src.FromNode]
		if !ok {
			continue
		}

		upExpr := up.SplitterExpr()
		if combinedExpr, hasCombiner := up.CombinedSplitterExpr(); hasCombiner {
			upExpr = combinedExpr
		}
		if upExpr == "" {
			continue
		}

		current := nn.SplitterExpr()
		if current != "" && current != upExpr {
			continue
		}

		combined := up.Combiner()
		inherited := make(map[string][]interface{})
		for k, v := range up.SplitInputs() {
			if !stringSliceContains(combined, k) {
				inherited[k] = v
			}
		}
		if err := nn.Split(upExpr, inherited); err != nil {
			return err
		}
	}
	return nil
}

func stringSliceContains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// GetOutput assembles the workflow's exposed output: for each
// wf_output_names entry, read the child field's already-assembled output.
func (w *Workflow) GetOutput() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string]interface{}, len(w.wfOutputNames))
	if w.wfState != nil {
		for _, binding := range w.wfOutputNames {
			if len(w.combiner) > 0 {
				buckets := make(map[string][]interface{})
				for i := range w.elemDirs {
					clone := w.innerNodes[binding.ChildName][i]
					buckets[w.elemKeys[i]] = append(buckets[w.elemKeys[i]], flattenChildField(clone, binding.ChildField))
				}
				out[binding.ExposedName] = buckets
				continue
			}
			byDir := make(map[string]interface{}, len(w.elemDirs))
			for i, d := range w.elemDirs {
				byDir[d] = flattenChildField(w.innerNodes[binding.ChildName][i], binding.ChildField)
			}
			out[binding.ExposedName] = byDir
		}
		return out
	}
	for _, binding := range w.wfOutputNames {
		child := w.children[binding.ChildName]
		childOut := child.GetOutput()
		out[binding.ExposedName] = childOut[binding.ChildField]
	}
	return out
}

// flattenChildField reads one field of a clone's assembled output,
// collapsing the single-element map a splitter-less child produces so the
// workflow element's value is the scalar itself.
func flattenChildField(n *node.Node, field string) interface{} {
	v := n.GetOutput()[field]
	switch byDir := v.(type) {
	case map[string]interface{}:
		if len(byDir) == 1 {
			for _, only := range byDir {
				return only
			}
		}
	case map[string][]interface{}:
		if len(byDir) == 1 {
			for _, only := range byDir {
				return only
			}
		}
	}
	return v
}

// Result is the read-only flattened projection over GetOutput, singleton
// per-field output maps collapsing to their single value — mirroring
// pkg/node.Node.Result.
func (w *Workflow) Result() map[string]interface{} {
	raw := w.GetOutput()
	flattened := make(map[string]interface{}, len(raw))
	for field, v := range raw {
		switch byDir := v.(type) {
		case map[string]interface{}:
			if len(byDir) == 1 {
				for _, only := range byDir {
					flattened[field] = only
				}
				continue
			}
			flattened[field] = byDir
		case map[string][]interface{}:
			if len(byDir) == 1 {
				for _, only := range byDir {
					flattened[field] = only
				}
				continue
			}
			flattened[field] = byDir
		default:
			flattened[field] = v
		}
	}
	return flattened
}
