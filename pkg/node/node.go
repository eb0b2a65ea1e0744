package node

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/yesoreyeram/dagflow/pkg/cache"
	"github.com/yesoreyeram/dagflow/pkg/logging"
	"github.com/yesoreyeram/dagflow/pkg/spec"
	"github.com/yesoreyeram/dagflow/pkg/splitter"
	"github.com/yesoreyeram/dagflow/pkg/state"
	"github.com/yesoreyeram/dagflow/pkg/types"
)

// Status is a node's place in its state machine.
type Status string

const (
	StatusConfigured Status = "configured"
	StatusPlanned    Status = "planned"
	StatusRunning    Status = "running"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Edge is an incoming connection from an upstream node's output field to one
// of this node's input fields.
type Edge struct {
	FromNode  string
	FromField string
	ToField   string
}

// Node is one graph vertex: a bound Runnable plus the splitter/combiner that
// determine how many times it runs and how its outputs are grouped.
type Node struct {
	mu sync.RWMutex

	name       string
	workingDir string
	runnable   Runnable
	cache      *cache.Cache
	logger     *logging.Logger

	splitterExpr string
	splitterRPN  splitter.RPN
	combiner     []string

	ownInputs     types.Record
	splitInputs   map[string][]interface{}
	innerSplitter map[string]bool

	edges    []Edge
	upstream map[string]*Node

	state  *state.State
	status Status
	rerun  bool

	results        map[string]types.Result            // dirName -> Result
	output         map[string]map[string]interface{}   // field -> dirName -> value
	combinedOutput map[string]map[string][]interface{} // field -> reducedDirName -> values
	failed         map[string]bool                     // dirName -> true
}

// New constructs a node in the configured state.
func New(name, workingDir string, runnable Runnable, c *cache.Cache, logger *logging.Logger) *Node {
	return &Node{
		name:           name,
		workingDir:     workingDir,
		runnable:       runnable,
		cache:          c,
		logger:         logger,
		ownInputs:      make(types.Record),
		splitInputs:    make(map[string][]interface{}),
		innerSplitter:  make(map[string]bool),
		upstream:       make(map[string]*Node),
		results:        make(map[string]types.Result),
		output:         make(map[string]map[string]interface{}),
		combinedOutput: make(map[string]map[string][]interface{}),
		failed:         make(map[string]bool),
		status:         StatusConfigured,
	}
}

// Name returns the node's identifier.
func (n *Node) Name() string { return n.name }

// Status returns the node's current lifecycle state.
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// SetRerun controls cache bypass: when true, RunElement skips cache
// lookups and passes rerun through to the runnable, re-executing every
// element of this node even when a finished result exists.
func (n *Node) SetRerun(rerun bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rerun = rerun
}

// BindOwnInput sets a scalar, non-split input shared by every element.
func (n *Node) BindOwnInput(field string, value interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ownInputs[field] = value
}

// ConnectUpstream registers an upstream node so edges referencing it can be
// resolved during GetInputEl.
func (n *Node) ConnectUpstream(upstream *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upstream[upstream.name] = upstream
}

// AddEdge declares an incoming connection from upstream.
func (n *Node) AddEdge(e Edge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edges = append(n.edges, e)
}

// Split sets the splitter expression and the per-variable sequences it
// ranges over. Idempotent only if expr equals the already-set expression.
func (n *Node) Split(expr string, inputs map[string][]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == StatusComplete {
		return ErrAlreadyComplete
	}
	if n.splitterExpr != "" && n.splitterExpr != expr {
		return fmt.Errorf("%w: %q vs %q", ErrSplitterChanged, n.splitterExpr, expr)
	}

	rpn, err := splitter.Parse(expr)
	if err != nil {
		return err
	}
	n.splitterExpr = expr
	n.splitterRPN = rpn
	for k, v := range inputs {
		n.splitInputs[k] = v
	}
	return nil
}

// Combine sets the combiner, requiring a prior splitter. Idempotent on an
// identical combiner.
func (n *Node) Combine(combiner []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == StatusComplete {
		return ErrAlreadyComplete
	}
	if n.splitterExpr == "" {
		return ErrNoSplitter
	}
	if n.combiner != nil && !reflect.DeepEqual(n.combiner, combiner) {
		return fmt.Errorf("%w: %v vs %v", ErrCombinerChanged, n.combiner, combiner)
	}
	n.combiner = combiner
	return nil
}

// RegisterInnerSplitter marks field as varying per parent element rather
// than contributing a global axis. Must be called before PrepareStateInput;
// per-element values are supplied afterwards, once the parent elements'
// actual outputs are known (PropagateInnerValues or SetInnerValues).
func (n *Node) RegisterInnerSplitter(field string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != StatusConfigured {
		return ErrAlreadyComplete
	}
	n.innerSplitter[field] = true
	return nil
}

// SetInnerValues records the values an inner-splitter field takes for one
// parent element, keyed by that element's linear index in AllElements
// order. Must be called after PrepareStateInput.
func (n *Node) SetInnerValues(field string, parentLinearIndex int, values []interface{}) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.state == nil {
		return ErrNotPlanned
	}
	n.state.SetInnerValues(field, parentLinearIndex, values)
	return nil
}

// Runnable returns the node's bound runnable, for a parent workflow that
// needs to instantiate per-element clones of this node.
func (n *Node) Runnable() Runnable {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.runnable
}

// OwnInputs returns a copy of the node's non-split input bindings.
func (n *Node) OwnInputs() types.Record {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ownInputs.Clone()
}

// InnerSplitterFields returns the fields registered as inner splitters.
func (n *Node) InnerSplitterFields() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.innerSplitter))
	for f := range n.innerSplitter {
		out = append(out, f)
	}
	return out
}

// SplitterExpr returns the node's bound splitter expression, or "" if unset.
func (n *Node) SplitterExpr() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.splitterExpr
}

// Combiner returns a copy of the node's bound combiner, or nil if unset.
func (n *Node) Combiner() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.combiner == nil {
		return nil
	}
	out := make([]string, len(n.combiner))
	copy(out, n.combiner)
	return out
}

// SplitInputs returns a copy of the concrete sequences the node's splitter
// variables are bound to — used by a parent workflow to inherit this
// node's splitter onto a downstream child.
func (n *Node) SplitInputs() map[string][]interface{} {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string][]interface{}, len(n.splitInputs))
	for k, v := range n.splitInputs {
		out[k] = v
	}
	return out
}

// CombinedSplitterExpr renders the node's combined RPN (splitter with
// combined variables eliminated) back into surface syntax, for a workflow
// to adopt onto a downstream child when this node has a combiner. Returns
// false if the node has not been planned yet or has no combiner.
func (n *Node) CombinedSplitterExpr() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.state == nil || len(n.combiner) == 0 {
		return "", false
	}
	return splitter.Render(n.state.CombinedRPN()), true
}

// InnerLen returns the number of inner-splitter elements registered for the
// given outer multi-index, or 0 if this node has no inner splitters.
func (n *Node) InnerLen(ind []int) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.state == nil {
		return 0
	}
	return n.state.InnerLen(ind)
}

// DirNameFor computes the surviving directory name one element — including
// an inner-splitter element when indInner >= 0 — is expected to produce,
// without requiring that element to have run yet.
func (n *Node) DirNameFor(ind []int, indInner int) (string, error) {
	n.mu.RLock()
	st := n.state
	n.mu.RUnlock()
	if st == nil {
		return "", ErrNotPlanned
	}
	values, err := st.StateValues(ind, indInner)
	if err != nil {
		return "", err
	}
	name := st.SurvivingDirName(values)
	if name == "" {
		name = state.IndexDirName(ind)
	}
	return name, nil
}

// PrepareStateInput evaluates the node's State from its bound splitter and
// inputs, transitioning configured -> planned. May fail with
// state.ErrUnresolvableSplitter.
func (n *Node) PrepareStateInput() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusConfigured {
		return nil
	}

	if err := spec.ValidateSpec(n.runnable.InputSpec()); err != nil {
		return fmt.Errorf("node %s: %w", n.name, err)
	}

	rpn := n.splitterRPN
	s, err := state.New(rpn, n.splitInputs)
	if err != nil {
		return err
	}
	for field := range n.innerSplitter {
		if err := s.RegisterInnerSplitter(field); err != nil {
			return err
		}
	}
	if len(n.combiner) > 0 {
		if err := s.ApplyCombiner(n.combiner); err != nil {
			return err
		}
	}
	n.state = s
	n.status = StatusPlanned
	if n.logger != nil {
		n.logger.WithNodeID(n.name).WithField("elements", s.NumElements()).Info("node planned")
	}
	return nil
}

// Ready2Run reports whether every upstream node this node depends on is
// complete.
func (n *Node) Ready2Run() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, e := range n.edges {
		up, ok := n.upstream[e.FromNode]
		if !ok {
			return false
		}
		if up.Status() != StatusComplete {
			return false
		}
	}
	return true
}

// AllElements exposes the planned state's element enumeration.
func (n *Node) AllElements() (func(func([]int) bool), error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.state == nil {
		return nil, ErrNotPlanned
	}
	return n.state.AllElements(), nil
}

// GetInputEl resolves one element's full input record: the node's own
// inputs, its split/inner-splitter variables at this index, and every
// incoming edge's upstream value.
func (n *Node) GetInputEl(ind []int, indInner int) (types.Record, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.state == nil {
		return nil, ErrNotPlanned
	}

	values, err := n.state.StateValues(ind, indInner)
	if err != nil {
		return nil, err
	}

	in := n.ownInputs.Clone()
	for k, v := range values {
		in[k] = v
	}

	for _, e := range n.edges {
		if _, resolvedByState := values[e.ToField]; resolvedByState {
			// local_field is itself an inner splitter of this node; its
			// value already came from state.
			continue
		}

		up, ok := n.upstream[e.FromNode]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, e.FromNode)
		}
		if up.Status() != StatusComplete {
			return nil, fmt.Errorf("%w: %s not complete", ErrMissingDependency, e.FromNode)
		}

		if up.hasCombiner() {
			key := up.combinedDirNameFromValues(values)
			bucket, ok := up.combinedOutputFor(e.FromField, key)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s[%s]", ErrMissingDependency, e.FromNode, e.FromField, key)
			}
			in[e.ToField] = bucket
		} else {
			key := up.survivingDirNameFromValues(values)
			val, ok := up.outputFor(e.FromField, key)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s[%s]", ErrMissingDependency, e.FromNode, e.FromField, key)
			}
			in[e.ToField] = val
		}
	}
	return in, nil
}

func (n *Node) hasCombiner() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.combiner) > 0
}

func (n *Node) survivingDirNameFromValues(values map[string]interface{}) string {
	return n.state.SurvivingDirName(values)
}

func (n *Node) combinedDirNameFromValues(values map[string]interface{}) string {
	return n.state.CombinedDirName(values)
}

func (n *Node) outputFor(field, dirName string) (interface{}, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	byDir, ok := n.output[field]
	if !ok {
		return nil, false
	}
	v, ok := byDir[dirName]
	return v, ok
}

func (n *Node) combinedOutputFor(field, dirName string) ([]interface{}, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	byDir, ok := n.combinedOutput[field]
	if !ok {
		return nil, false
	}
	v, ok := byDir[dirName]
	return v, ok
}

// PropagateInnerValues fills the state's per-parent-element value table for
// every edge feeding an inner-splitter field, reading the upstream node's
// completed per-element outputs. Call once every upstream node is complete
// and before enumerating this node's inner elements; a node with no inner
// splitters is a no-op.
func (n *Node) PropagateInnerValues() error {
	n.mu.RLock()
	st := n.state
	edges := make([]Edge, len(n.edges))
	copy(edges, n.edges)
	n.mu.RUnlock()

	if st == nil {
		return ErrNotPlanned
	}

	for _, e := range edges {
		n.mu.RLock()
		isInner := n.innerSplitter[e.ToField]
		up := n.upstream[e.FromNode]
		n.mu.RUnlock()
		if !isInner {
			continue
		}
		if up == nil {
			return fmt.Errorf("%w: %s", ErrMissingDependency, e.FromNode)
		}
		if up.Status() != StatusComplete {
			return fmt.Errorf("%w: %s not complete", ErrMissingDependency, e.FromNode)
		}

		for ind := range st.AllElements() {
			values, err := st.OuterValues(ind)
			if err != nil {
				return err
			}
			key := up.survivingDirNameFromValues(values)
			val, ok := up.outputFor(e.FromField, key)
			if !ok {
				return fmt.Errorf("%w: %s.%s[%s]", ErrMissingDependency, e.FromNode, e.FromField, key)
			}
			seq, err := asSequence(val)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", e.FromNode, e.FromField, err)
			}
			st.SetInnerValues(e.ToField, st.LinearIndex(ind), seq)
		}
	}
	return nil
}

// asSequence coerces an upstream output value feeding an inner splitter
// into a generic slice; inner splitters are defined only for per-element
// sequence outputs.
func asSequence(val interface{}) ([]interface{}, error) {
	switch v := val.(type) {
	case []interface{}:
		return v, nil
	default:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Slice {
			out := make([]interface{}, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Interface()
			}
			return out, nil
		}
		return nil, fmt.Errorf("%w: %T", ErrNotSequence, val)
	}
}

// RunElement executes one element: resolves its input record, consults the
// cache, invokes the bound Runnable on a miss, and records the result under
// the node's results dict keyed by directory name. A failed element moves
// the node to failed; RunElement never advances it to complete — call
// CheckAllResults once every element has been dispatched.
func (n *Node) RunElement(ind []int, indInner int) (string, types.Result, error) {
	n.mu.Lock()
	if n.status == StatusPlanned {
		n.status = StatusRunning
	}
	st := n.state
	rerun := n.rerun
	n.mu.Unlock()

	if st == nil {
		return "", types.Result{}, ErrNotPlanned
	}

	in, err := n.GetInputEl(ind, indInner)
	if err != nil {
		return "", types.Result{}, err
	}

	values, err := st.StateValues(ind, indInner)
	if err != nil {
		return "", types.Result{}, err
	}
	dirName := st.SurvivingDirName(values)
	if dirName == "" {
		dirName = state.IndexDirName(ind)
	}

	if n.workingDir != "" {
		if mkErr := os.MkdirAll(filepath.Join(n.workingDir, dirName), 0o755); mkErr != nil {
			return dirName, types.Result{}, fmt.Errorf("node: create element working dir: %w", mkErr)
		}
	}

	runnable := n.runnable.Clone()
	runnable.Bind(in)

	checksum, err := runnable.Checksum()
	if err != nil {
		return dirName, types.Result{}, err
	}

	if n.cache != nil && !rerun {
		if cached, found, loadErr := n.cache.Load(checksum); loadErr == nil && found {
			if n.logger != nil {
				n.logger.WithNodeID(n.name).WithChecksum(checksum).Debug("cache hit")
			}
			n.recordResult(dirName, cached)
			return dirName, cached, nil
		}
	}

	// dir is set only once both the directory claim and the write lock are
	// held; a concurrently claimed element still executes, but its outcome
	// is recorded in memory only — the claiming writer owns the directory.
	var dir string
	var release func() error
	if n.cache != nil {
		if d, rerr := n.cache.Reserve(checksum); rerr == nil {
			if _, rel, lerr := cache.AcquireLock(d); lerr == nil {
				dir = d
				release = rel
			}
		}
	}

	result, callErr := runnable.Call(rerun)

	// Input fields declaring an output_file_template contribute declared
	// outputs of their own: render each template against this element's
	// bound record so the path lands in the result alongside the
	// runnable-produced fields.
	if callErr == nil && result.Succeeded() {
		if tmplOut, tmplErr := spec.OutputFromInputFields(runnable.InputSpec(), in); tmplErr != nil {
			callErr = tmplErr
			result.Err = tmplErr
		} else if len(tmplOut) > 0 {
			if result.Output == nil {
				result.Output = make(types.Record, len(tmplOut))
			}
			for k, v := range tmplOut {
				result.Output[k] = v
			}
		}
	}

	if n.cache != nil && dir != "" {
		if callErr == nil && result.Succeeded() {
			_ = n.cache.Save(dir, cache.TaskSnapshot{Checksum: checksum, CreatedAt: time.Now()}, result)
		} else {
			elemErr := callErr
			if elemErr == nil {
				elemErr = result.Err
			}
			if elemErr != nil {
				_ = n.cache.RecordError(dir, elemErr, result.StartedAt, result.EndedAt)
			}
		}
		if release != nil {
			_ = release()
		}
	}

	n.recordResult(dirName, result)
	if callErr != nil && result.Err == nil {
		result.Err = callErr
	}
	return dirName, result, callErr
}

func (n *Node) recordResult(dirName string, result types.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.results[dirName] = result
	if !result.Succeeded() {
		n.failed[dirName] = true
		n.status = StatusFailed
		if n.logger != nil {
			n.logger.WithNodeID(n.name).WithDirName(dirName).WithError(result.Err).Error("element failed")
		}
		return
	}
	for field, val := range result.Output {
		if n.output[field] == nil {
			n.output[field] = make(map[string]interface{})
		}
		n.output[field][dirName] = val
	}
}

// OutputFieldNames returns the bound runnable's declared output field
// names, including the outputs contributed by input fields carrying an
// output_file_template.
func (n *Node) OutputFieldNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s := n.runnable.OutputSpec()
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.ExposedName())
	}
	names = append(names, spec.OutputNamesFromInputFields(n.runnable.InputSpec())...)
	return names
}

// ExpectedDirNames enumerates the surviving directory name every planned
// element is expected to produce, in AllElements order. Nodes with inner
// splitters must supply their own directory-name accounting to
// CheckAllResults since a single outer index maps to several inner
// directory names.
func (n *Node) ExpectedDirNames() ([]string, error) {
	n.mu.RLock()
	st := n.state
	n.mu.RUnlock()
	if st == nil {
		return nil, ErrNotPlanned
	}
	var names []string
	for ind := range st.AllElements() {
		values, err := st.StateValues(ind, -1)
		if err != nil {
			return nil, err
		}
		names = append(names, st.SurvivingDirName(values))
	}
	return names, nil
}

// CheckAllResults reports whether every output field has a recorded value
// for every element directory name, and folds combined outputs into
// combinedOutput via the same rule as GetOutput when a combiner is set.
// Returns true and transitions the node to complete when so; returns false
// (leaving status as-is) otherwise. Once any element has failed, this
// always returns false — the node is permanently unable to reach complete.
func (n *Node) CheckAllResults(expectedDirNames []string, outputFields []string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.failed) > 0 {
		return false
	}
	for _, field := range outputFields {
		byDir, ok := n.output[field]
		if !ok {
			return false
		}
		for _, dirName := range expectedDirNames {
			if _, ok := byDir[dirName]; !ok {
				return false
			}
		}
	}

	if len(n.combiner) > 0 {
		n.foldCombinedOutputLocked(expectedDirNames, outputFields)
	}
	n.status = StatusComplete
	return true
}

// foldCombinedOutputLocked walks expectedDirNames rather than the output
// map so each reduced bucket accumulates its values in element-enumeration
// order — downstream consumers of a combined output rely on the lists being
// ordered by the collapsed axes ascending.
func (n *Node) foldCombinedOutputLocked(expectedDirNames, outputFields []string) {
	for _, field := range outputFields {
		byDir := n.output[field]
		reduced := make(map[string][]interface{})
		for _, dirName := range expectedDirNames {
			val, ok := byDir[dirName]
			if !ok {
				continue
			}
			values := parseDirName(dirName)
			key := n.state.CombinedDirName(values)
			reduced[key] = append(reduced[key], val)
		}
		n.combinedOutput[field] = reduced
	}
}

// parseDirName inverts state.DirName's "key:value_key:value" format back
// into a map, solely for re-deriving which combined group a given surviving
// directory name belongs to.
func parseDirName(dirName string) map[string]interface{} {
	values := make(map[string]interface{})
	if dirName == "" {
		return values
	}
	pairs := splitDirName(dirName)
	for _, p := range pairs {
		k, v := splitPair(p)
		values[k] = v
	}
	return values
}

func splitDirName(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func splitPair(p string) (string, string) {
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			return p[:i], p[i+1:]
		}
	}
	return p, ""
}

// GetOutput assembles the node's final output map: field -> dirName ->
// value, or field -> reducedDirName -> []value when a combiner is set.
// Call only once the node is complete.
func (n *Node) GetOutput() map[string]interface{} {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make(map[string]interface{}, len(n.output))
	if len(n.combiner) > 0 {
		for field, byDir := range n.combinedOutput {
			out[field] = byDir
		}
		return out
	}
	for field, byDir := range n.output {
		out[field] = byDir
	}
	return out
}

// Result is the read-only, flattened projection over GetOutput: singleton
// output maps collapse to their single value.
func (n *Node) Result() map[string]interface{} {
	raw := n.GetOutput()
	flattened := make(map[string]interface{}, len(raw))
	for field, v := range raw {
		switch byDir := v.(type) {
		case map[string]interface{}:
			if len(byDir) == 1 {
				for _, only := range byDir {
					flattened[field] = only
				}
			} else {
				flattened[field] = byDir
			}
		case map[string][]interface{}:
			if len(byDir) == 1 {
				for _, only := range byDir {
					flattened[field] = only
				}
			} else {
				flattened[field] = byDir
			}
		default:
			flattened[field] = v
		}
	}
	return flattened
}
