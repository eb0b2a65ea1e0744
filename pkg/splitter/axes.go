package splitter

// Axes is the pair (axis_for_input, shape) derived from an RPN expression
// and a map of input lengths.
type Axes struct {
	// AxisForInput maps a leaf field name to the ordered list of axis
	// indices that vary it. Non-empty iff the field appears in the RPN.
	AxisForInput map[string][]int
	// Shape maps an axis index to its size.
	Shape map[int]int
}

type axGroup struct {
	axes   []int
	leaves []string
}

// RPNToAxes evaluates rpn against the supplied input lengths (the length of
// each leaf's bound sequence) and returns the canonical axis assignment.
// Axis numbering is canonical: the leftmost leaf is assigned axis 0, and so
// on in left-to-right order over the surviving axes.
func RPNToAxes(rpn RPN, inputLengths map[string]int) (Axes, error) {
	// A node with no splitter has an empty RPN: zero axes, one element.
	if len(rpn) == 0 {
		return Axes{AxisForInput: map[string][]int{}, Shape: map[int]int{}}, nil
	}

	shapeTmp := make(map[int]int)
	axisForInput := make(map[string][]int)
	nextAxis := 0

	var stack []axGroup
	for _, it := range rpn {
		switch it.Kind {
		case ItemLeaf:
			length, ok := inputLengths[it.Leaf]
			if !ok {
				return Axes{}, ErrUnknownVariable
			}
			axisID := nextAxis
			nextAxis++
			shapeTmp[axisID] = length
			axisForInput[it.Leaf] = []int{axisID}
			stack = append(stack, axGroup{axes: []int{axisID}, leaves: []string{it.Leaf}})

		case ItemOp:
			n := len(stack)
			right := stack[n-1]
			left := stack[n-2]
			stack = stack[:n-2]

			switch it.Op {
			case Scalar:
				if len(left.axes) != len(right.axes) {
					return Axes{}, ErrScalarLengthMismatch
				}
				for i := range left.axes {
					if shapeTmp[left.axes[i]] != shapeTmp[right.axes[i]] {
						return Axes{}, ErrScalarLengthMismatch
					}
					oldAxis, newAxis := right.axes[i], left.axes[i]
					delete(shapeTmp, oldAxis)
					for _, axes := range axisForInput {
						for j, a := range axes {
							if a == oldAxis {
								axes[j] = newAxis
							}
						}
					}
				}
				stack = append(stack, axGroup{
					axes:   left.axes,
					leaves: append(append([]string{}, left.leaves...), right.leaves...),
				})

			case Outer:
				axes := append(append([]int{}, left.axes...), right.axes...)
				stack = append(stack, axGroup{
					axes:   axes,
					leaves: append(append([]string{}, left.leaves...), right.leaves...),
				})
			}
		}
	}

	if len(stack) != 1 {
		return Axes{}, ErrMalformedSplitter
	}
	final := stack[0]

	// Compact surviving raw axis ids into canonical 0..k-1 order.
	canon := make(map[int]int, len(final.axes))
	for i, raw := range final.axes {
		canon[raw] = i
	}
	shape := make(map[int]int, len(final.axes))
	for i, raw := range final.axes {
		shape[i] = shapeTmp[raw]
	}
	for v, axes := range axisForInput {
		newAxes := make([]int, len(axes))
		for i, raw := range axes {
			newAxes[i] = canon[raw]
		}
		axisForInput[v] = newAxes
	}

	return Axes{AxisForInput: axisForInput, Shape: shape}, nil
}

// ApplyCombiner returns a new RPN with every leaf named in combiner
// removed, eliminating the combined variables' axes. The remaining structure keeps its relative shape: a binary operator that
// loses both operands to the combiner is itself dropped; one that loses only
// one operand degenerates to the surviving operand.
func ApplyCombiner(rpn RPN, combiner []string) (RPN, error) {
	combined := make(map[string]bool, len(combiner))
	for _, c := range combiner {
		if !rpn.Contains(c) {
			return nil, ErrUnknownCombinerVariable
		}
		combined[c] = true
	}

	type node struct {
		item        Item
		left, right *node
		dead        bool // entirely eliminated
	}

	var stack []*node
	for _, it := range rpn {
		switch it.Kind {
		case ItemLeaf:
			n := &node{item: it, dead: combined[it.Leaf]}
			stack = append(stack, n)
		case ItemOp:
			k := len(stack)
			right := stack[k-1]
			left := stack[k-2]
			stack = stack[:k-2]
			switch {
			case left.dead && right.dead:
				stack = append(stack, &node{dead: true})
			case left.dead:
				stack = append(stack, right)
			case right.dead:
				stack = append(stack, left)
			default:
				stack = append(stack, &node{item: it, left: left, right: right})
			}
		}
	}
	if len(stack) != 1 {
		return nil, ErrMalformedSplitter
	}
	root := stack[0]
	if root.dead {
		return RPN{}, nil
	}

	var out RPN
	var walk func(*node)
	walk = func(n *node) {
		if n.left == nil && n.right == nil {
			out = append(out, n.item)
			return
		}
		walk(n.left)
		walk(n.right)
		out = append(out, n.item)
	}
	walk(root)
	return out, nil
}
