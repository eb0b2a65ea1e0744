package task

import (
	"fmt"
	"time"

	"github.com/yesoreyeram/dagflow/pkg/spec"
	"github.com/yesoreyeram/dagflow/pkg/types"
)

// ExprTask is a pure-function Runnable whose body is a single expr-lang
// expression, evaluated against its bound input record. It declares exactly
// one output field, named by the caller — a bare expression has one result.
type ExprTask struct {
	className  string
	body       string
	inputSpec  types.Spec
	outputName string
	record     types.Record
	env        map[string]string
}

// NewExprTask constructs a pure-function task. className participates in
// the checksum; body is the expr-lang expression evaluated
// against the bound inputs; outputName is the single output field the
// expression's result is assigned to.
func NewExprTask(className, body string, inputSpec types.Spec, outputName string) *ExprTask {
	return &ExprTask{
		className:  className,
		body:       body,
		inputSpec:  inputSpec,
		outputName: outputName,
		record:     make(types.Record),
	}
}

// Bind sets the task's input record, replacing any previous binding.
func (t *ExprTask) Bind(record types.Record) {
	t.record = record.Clone()
}

// Clone returns an unbound copy of the task sharing its immutable
// definition (class name, body, specs) but none of its bound record —
// giving each concurrently executing element its own instance to bind
// without racing on a shared record.
func (t *ExprTask) Clone() *ExprTask {
	return &ExprTask{
		className:  t.className,
		body:       t.body,
		inputSpec:  t.inputSpec,
		outputName: t.outputName,
		record:     make(types.Record),
		env:        t.env,
	}
}

// WithEnv attaches an environment fingerprint contribution (e.g. package
// versions) that participates in the checksum but not in evaluation.
func (t *ExprTask) WithEnv(env map[string]string) *ExprTask {
	t.env = env
	return t
}

func (t *ExprTask) InputSpec() types.Spec { return t.inputSpec }

func (t *ExprTask) OutputSpec() types.Spec {
	return types.Spec{Fields: []types.Field{{Name: t.outputName, Kind: types.FieldScalar}}}
}

func (t *ExprTask) Checksum() (string, error) {
	inputHash, err := spec.InputHash(t.className, spec.EnvFingerprint(t.env), t.inputSpec, t.record)
	if err != nil {
		return "", err
	}
	return spec.Checksum(t.className, inputHash), nil
}

// Call evaluates the expression body against the bound inputs. rerun is
// accepted to satisfy the Runnable contract; ExprTask has no cache-bypass
// behavior of its own — cache consultation is the caller's responsibility
// (pkg/cache), not the runnable's.
func (t *ExprTask) Call(rerun bool) (types.Result, error) {
	start := time.Now()

	bound := t.record.Clone()
	for _, f := range t.inputSpec.Fields {
		if f.OutputFileTemplate != "" {
			continue
		}
		if _, ok := bound[f.Name]; !ok {
			if f.Default == nil {
				return types.Result{}, fmt.Errorf("%w: %s", ErrMissingInput, f.Name)
			}
			bound[f.Name] = f.Default
		}
	}

	env := buildEnv(bound)
	result, err := sharedExprEngine.eval(t.body, env)
	if err != nil {
		return timedResult(nil, types.Runtime{}, err, start), err
	}

	output := types.Record{t.outputName: result}
	return timedResult(output, types.Runtime{}, nil, start), nil
}
