package task

import (
	"time"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

// Runnable is the uniform contract the engine executes against. The core
// never looks inside a Runnable's implementation: it binds inputs, calls
// it, and persists whatever Result comes back.
type Runnable interface {
	// InputSpec describes the named, typed fields this runnable accepts.
	InputSpec() types.Spec
	// OutputSpec describes the named, typed fields this runnable produces.
	OutputSpec() types.Spec
	// Checksum identifies this runnable's bound-input element for the
	// cache: the class name joined with the input-record hash.
	Checksum() (string, error)
	// Call executes the runnable. rerun=true means ignore cache hits for
	// this element; the scheduler still persists whatever Call returns.
	Call(rerun bool) (types.Result, error)
}

// RuntimeSampler is an optional capability a Runnable may also implement to
// report resource-usage peaks. Nothing in this module calls SampleRuntime:
// a Result's Runtime field holds whatever the Runnable's Call put there.
// The engine never samples process metrics itself.
type RuntimeSampler interface {
	SampleRuntime() types.Runtime
}

func timedResult(output types.Record, runtime types.Runtime, err error, start time.Time) types.Result {
	return types.Result{
		Output:    output,
		Runtime:   runtime,
		Err:       err,
		StartedAt: start,
		EndedAt:   time.Now(),
	}
}
