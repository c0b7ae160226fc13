package reactive

import "context"

// Extension provides hooks into the update lifecycle. Extensions are
// registered on the manager and wrap every evaluation and source update.
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a manager
	Init(m *Manager) error

	// Wrap intercepts operations (evaluate, set)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError handles evaluation failures
	OnError(err error, op *Operation, m *Manager)

	// Dispose is called when the manager is disposed
	Dispose(m *Manager) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(m *Manager) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, m *Manager) {
}

func (e *BaseExtension) Dispose(m *Manager) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind    OperationKind
	Node    NodeInfo
	Manager *Manager
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpEvaluate indicates a node evaluation
	OpEvaluate OperationKind = "evaluate"
	// OpSet indicates a source update
	OpSet OperationKind = "set"
)
