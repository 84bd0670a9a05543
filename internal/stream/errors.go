package stream

import "fmt"

// InvalidStateError reports an operation attempted in a lifecycle state
// that forbids it. It is surfaced to the caller and never crashes the
// session loop.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %q not allowed in state %s", e.Op, e.State)
}
