package node

import (
	"github.com/yesoreyeram/dagflow/pkg/task"
	"github.com/yesoreyeram/dagflow/pkg/types"
)

// Runnable is the per-element contract a Node executes against: the bare
// Runnable contract from pkg/task, plus the ability to bind a fresh input
// record and clone an unbound copy so concurrently executing elements each
// get their own instance rather than racing on a shared one.
type Runnable interface {
	task.Runnable
	Bind(types.Record)
	Clone() Runnable
}

// exprRunnable adapts *task.ExprTask to Runnable. task.ExprTask.Clone
// returns a concrete *task.ExprTask rather than the Runnable interface, so
// this thin wrapper is what actually satisfies Clone() Runnable.
type exprRunnable struct {
	*task.ExprTask
}

func (e exprRunnable) Clone() Runnable {
	return exprRunnable{e.ExprTask.Clone()}
}

// WrapExprTask adapts a *task.ExprTask to the node.Runnable contract.
func WrapExprTask(t *task.ExprTask) Runnable {
	return exprRunnable{t}
}
