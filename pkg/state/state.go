package state

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/yesoreyeram/dagflow/pkg/splitter"
)

// State is a node's axis/shape/element-enumeration state, constructed once
// its inputs are bound and immutable thereafter.
type State struct {
	rpn      splitter.RPN
	combined splitter.RPN
	combiner []string

	axisForInput map[string][]int
	shape        map[int]int

	inputs map[string][]interface{}

	mu              sync.RWMutex
	innerSplitters  map[string]bool
	innerValues     map[string]map[int][]interface{} // name -> parentLinearIndex -> values
	combInpToRemove map[string]bool
}

// New constructs a State from a splitter RPN and the concrete sequences
// each referenced variable is bound to. Axis lengths are derived from
// len(inputs[v]) per variable.
func New(rpn splitter.RPN, inputs map[string][]interface{}) (*State, error) {
	lengths := make(map[string]int, len(inputs))
	for k, v := range inputs {
		lengths[k] = len(v)
	}

	axes, err := splitter.RPNToAxes(rpn, lengths)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvableSplitter, err)
	}

	return &State{
		rpn:             rpn,
		combined:        rpn,
		axisForInput:    axes.AxisForInput,
		shape:           axes.Shape,
		inputs:          inputs,
		innerSplitters:  make(map[string]bool),
		innerValues:     make(map[string]map[int][]interface{}),
		combInpToRemove: make(map[string]bool),
	}, nil
}

// AxisForInput returns the axis indices that vary the named input, or nil
// if the variable does not appear in the splitter RPN.
func (s *State) AxisForInput(name string) []int {
	return s.axisForInput[name]
}

// Shape returns the size of the given axis.
func (s *State) Shape(axis int) (int, bool) {
	size, ok := s.shape[axis]
	return size, ok
}

// NumAxes returns the number of axes in the state's shape.
func (s *State) NumAxes() int {
	return len(s.shape)
}

// NumElements returns the total element count, the product of every axis's
// size (1 when there are no axes at all).
func (s *State) NumElements() int {
	total := 1
	for axis := 0; axis < len(s.shape); axis++ {
		total *= s.shape[axis]
	}
	return total
}

// AllElements returns the ordered iterator of multi-indices, lexicographic
// over axes ascending with the highest-numbered axis varying fastest.
// Each yielded slice is a fresh copy
// safe to retain.
func (s *State) AllElements() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		n := len(s.shape)
		idx := make([]int, n)
		if n == 0 {
			yield([]int{})
			return
		}
		for {
			cp := make([]int, n)
			copy(cp, idx)
			if !yield(cp) {
				return
			}
			i := n - 1
			for i >= 0 {
				idx[i]++
				if idx[i] < s.shape[i] {
					break
				}
				idx[i] = 0
				i--
			}
			if i < 0 {
				return
			}
		}
	}
}

// LinearIndex flattens a multi-index into the row-major linear position
// matching AllElements' enumeration order. Used as the parent-element key
// inner-splitter values are registered under.
func (s *State) LinearIndex(ind []int) int {
	linear := 0
	for axis := 0; axis < len(s.shape); axis++ {
		linear = linear*s.shape[axis] + ind[axis]
	}
	return linear
}

// RegisterInnerSplitter marks name as an inner splitter: a variable whose
// length varies per parent element rather than contributing a global axis.
func (s *State) RegisterInnerSplitter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.axisForInput[name]; ok {
		return fmt.Errorf("%w: %s", ErrInnerSplitterConflict, name)
	}
	s.innerSplitters[name] = true
	if _, ok := s.innerValues[name]; !ok {
		s.innerValues[name] = make(map[int][]interface{})
	}
	return nil
}

// SetInnerValues records the per-element values an inner splitter variable
// takes for one parent element, indexed by that parent's linear index.
func (s *State) SetInnerValues(name string, parentLinearIndex int, values []interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.innerValues[name]; !ok {
		s.innerValues[name] = make(map[int][]interface{})
	}
	s.innerValues[name][parentLinearIndex] = values
}

// IsInnerSplitter reports whether name is registered as an inner splitter.
func (s *State) IsInnerSplitter(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.innerSplitters[name]
}

// ApplyCombiner records combiner as the set of variables eliminated before
// this state's output reaches downstream nodes, and computes the combined
// RPN.
func (s *State) ApplyCombiner(combiner []string) error {
	combined, err := splitter.ApplyCombiner(s.rpn, combiner)
	if err != nil {
		return err
	}
	s.combined = combined
	s.combiner = combiner

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range combiner {
		s.combInpToRemove[v] = true
	}
	return nil
}

// CombinedRPN returns the splitter RPN with combined variables eliminated.
func (s *State) CombinedRPN() splitter.RPN {
	return s.combined
}

// RemainingAxes returns the axis ids not driven by any combined variable,
// in ascending order — the coordinates elements are grouped by once a
// combiner has collapsed the removed axes.
func (s *State) RemainingAxes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	removed := make(map[int]bool)
	for v := range s.combInpToRemove {
		for _, axis := range s.axisForInput[v] {
			removed[axis] = true
		}
	}
	var out []int
	for axis := 0; axis < len(s.shape); axis++ {
		if !removed[axis] {
			out = append(out, axis)
		}
	}
	return out
}

// ProjectIndex restricts a multi-index to RemainingAxes, producing the
// group key elements sharing a combined axis are bucketed under.
func (s *State) ProjectIndex(ind []int) []int {
	remaining := s.RemainingAxes()
	out := make([]int, len(remaining))
	for i, axis := range remaining {
		out[i] = ind[axis]
	}
	return out
}

// OuterValues resolves one multi-index to a {variable -> value} map over
// the regular axes only, ignoring any registered inner splitters. This is
// the resolution used while an element's inner values are still being
// gathered from upstream — at that point the inner table has no entry for
// the element yet.
func (s *State) OuterValues(ind []int) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(s.axisForInput))
	for name, axes := range s.axisForInput {
		if len(axes) == 0 {
			continue
		}
		axis := axes[0]
		if axis < 0 || axis >= len(ind) {
			return nil, fmt.Errorf("%w: axis %d for %s", ErrIndexOutOfRange, axis, name)
		}
		i := ind[axis]
		seq := s.inputs[name]
		if i < 0 || i >= len(seq) {
			return nil, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, name, i)
		}
		result[name] = seq[i]
	}
	return result, nil
}

// StateValues resolves one multi-index to a {variable -> value} map.
// indInner is consulted only for variables registered via
// RegisterInnerSplitter; pass -1 if the state has no inner splitters.
func (s *State) StateValues(ind []int, indInner int) (map[string]interface{}, error) {
	result, err := s.OuterValues(ind)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.innerSplitters) > 0 {
		parentIdx := s.LinearIndex(ind)
		for name := range s.innerSplitters {
			vals, ok := s.innerValues[name][parentIdx]
			if !ok {
				return nil, fmt.Errorf("%w: %s at parent %d", ErrNoInnerValues, name, parentIdx)
			}
			if indInner < 0 || indInner >= len(vals) {
				return nil, fmt.Errorf("%w: %s inner index %d", ErrMissingInnerIndex, name, indInner)
			}
			result[name] = vals[indInner]
		}
	}

	return result, nil
}

func (s *State) isSurviving(name string) bool {
	if s.rpn.Contains(name) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.innerSplitters[name]
}

func (s *State) isCombined(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.combInpToRemove[name]
}

// DirName concatenates "key:value" pairs from values in sorted key order,
// joined by "_" — a pure function of the map, independent of insertion
// order.
func DirName(values map[string]interface{}) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", k, values[k]))
	}
	return strings.Join(parts, "_")
}

// SurvivingDirName computes DirName restricted to variables present in the
// splitter RPN or registered as inner splitters.
func (s *State) SurvivingDirName(values map[string]interface{}) string {
	filtered := make(map[string]interface{}, len(values))
	for k, v := range values {
		if s.isSurviving(k) {
			filtered[k] = v
		}
	}
	return DirName(filtered)
}

// CombinedDirName computes SurvivingDirName further restricted to exclude
// variables eliminated by a combiner — the name downstream nodes key their
// element lookups on once a combiner has collapsed those axes.
func (s *State) CombinedDirName(values map[string]interface{}) string {
	filtered := make(map[string]interface{}, len(values))
	for k, v := range values {
		if s.isSurviving(k) && !s.isCombined(k) {
			filtered[k] = v
		}
	}
	return DirName(filtered)
}

// InnerLen returns the number of inner-splitter elements registered for the
// given parent element, or 0 if the state has no inner splitters registered
// for it. Assumes every inner splitter registered for one parent element
// shares a single length.
func (s *State) InnerLen(ind []int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.innerSplitters) == 0 {
		return 0
	}
	parentIdx := s.LinearIndex(ind)
	max := 0
	for name := range s.innerSplitters {
		if vals, ok := s.innerValues[name][parentIdx]; ok && len(vals) > max {
			max = len(vals)
		}
	}
	return max
}

// IndexDirName substitutes index-tuple coordinates for values — used when
// write_state is false to yield shorter, deterministic names for large or
// non-stringifiable values.
func IndexDirName(ind []int) string {
	var b strings.Builder
	for axis, v := range ind {
		fmt.Fprintf(&b, "i%d%d", axis, v)
	}
	return b.String()
}
