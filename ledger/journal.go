package ledger

import "go.uber.org/zap"

// journal records compensating actions for writes already applied inside one
// operation, so a later failure can discard them.
type journal struct {
	undo []undoStep
}

type undoStep struct {
	name string
	fn   func() error
}

func (j *journal) record(name string, fn func() error) {
	j.undo = append(j.undo, undoStep{name: name, fn: fn})
}

// rollback runs the recorded steps newest first.
func (j *journal) rollback(log *zap.Logger) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		step := j.undo[i]
		if err := step.fn(); err != nil {
			log.Error("rollback step failed", zap.String("step", step.name), zap.Error(err))
		}
	}
	j.undo = nil
}
