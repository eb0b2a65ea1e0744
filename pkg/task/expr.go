package task

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEngine wraps expr-lang/expr with a compiled-program cache, shared by
// every ExprTask in a process. Programs are cached by source text since an
// ExprTask's body never changes after construction.
type exprEngine struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

var sharedExprEngine = &exprEngine{cache: make(map[string]*vm.Program)}

func (e *exprEngine) eval(body string, env map[string]interface{}) (interface{}, error) {
	e.mu.Lock()
	program, ok := e.cache[body]
	e.mu.Unlock()

	if !ok {
		var err error
		program, err = expr.Compile(body, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompileFailed, err)
		}
		e.mu.Lock()
		e.cache[body] = program
		e.mu.Unlock()
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvalFailed, err)
	}
	return out, nil
}

// buildEnv projects a bound input record into the expression environment,
// alongside a fixed library of helper functions pure task bodies commonly
// need. Every input field is exposed both under its own name and nested
// under "inputs" so expressions can write either `x + y` or `inputs.x +
// inputs.y`.
func buildEnv(inputs map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(inputs)+1)
	for k, v := range inputs {
		env[k] = v
	}
	env["inputs"] = inputs
	addBuiltins(env)
	return env
}

func addBuiltins(env map[string]interface{}) {
	env["contains"] = strings.Contains
	env["startsWith"] = strings.HasPrefix
	env["endsWith"] = strings.HasSuffix
	env["upper"] = strings.ToUpper
	env["lower"] = strings.ToLower
	env["trim"] = strings.TrimSpace
	env["split"] = strings.Split
	env["join"] = func(arr []interface{}, sep string) string {
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return strings.Join(parts, sep)
	}

	env["pow"] = math.Pow
	env["sqrt"] = math.Sqrt

	env["sum"] = func(args ...interface{}) float64 {
		total := 0.0
		for _, v := range flattenNumeric(args) {
			total += v
		}
		return total
	}
	env["avg"] = func(args ...interface{}) float64 {
		vals := flattenNumeric(args)
		if len(vals) == 0 {
			return 0
		}
		total := 0.0
		for _, v := range vals {
			total += v
		}
		return total / float64(len(vals))
	}
}

func flattenNumeric(args []interface{}) []float64 {
	var out []float64
	for _, a := range args {
		switch v := a.(type) {
		case []interface{}:
			out = append(out, flattenNumeric(v)...)
		default:
			if n, ok := toFloat64(v); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}
