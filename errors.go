package reactive

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrNilResult indicates an evaluator returned a nil value where a
	// concrete value is required.
	ErrNilResult = errors.New("reactive: evaluator returned nil result")

	// ErrQuiescenceFromEvaluator indicates WaitForAllUpdates was called
	// from inside an evaluator, which would deadlock.
	ErrQuiescenceFromEvaluator = errors.New("reactive: WaitForAllUpdates called from inside an evaluator")

	// ErrSourceClosed indicates a refresh was attempted on a poll source
	// after Close.
	ErrSourceClosed = errors.New("reactive: poll source closed")

	// ErrManagerDisposed indicates the manager's workers have been shut down.
	ErrManagerDisposed = errors.New("reactive: manager disposed")
)

// EvaluationError wraps a failure raised (or recovered) from an evaluator.
// The node retains its prior snapshot; dependents are not notified.
type EvaluationError struct {
	NodeID     uint64
	NodeName   string
	Cause      error
	Initial    bool
	StackTrace []byte
}

func (e *EvaluationError) Error() string {
	kind := "evaluation"
	if e.Initial {
		kind = "initial evaluation"
	}
	if e.NodeName != "" {
		return fmt.Sprintf("reactive: %s error in node %q (#%d): %v", kind, e.NodeName, e.NodeID, e.Cause)
	}
	return fmt.Sprintf("reactive: %s error in node #%d: %v", kind, e.NodeID, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

func newEvaluationError(n *node, cause error, initial bool) *EvaluationError {
	return &EvaluationError{
		NodeID:     n.id,
		NodeName:   n.name,
		Cause:      cause,
		Initial:    initial,
		StackTrace: debug.Stack(),
	}
}
