package extensions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	reactive "github.com/reactive-fn/reactive-go"
)

// LoggingExtension logs every evaluation and source update through slog.
type LoggingExtension struct {
	reactive.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension writing to handler.
func NewLoggingExtension(handler slog.Handler) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: reactive.NewBaseExtension("logging"),
		logger:        slog.New(handler),
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *reactive.Operation) (any, error) {
	start := time.Now()
	result, err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.Error("operation failed",
			"operation", string(op.Kind),
			"node", nodeLabel(op.Node),
			"duration", duration,
			"error", err,
		)
	} else {
		e.logger.Debug("operation completed",
			"operation", string(op.Kind),
			"node", nodeLabel(op.Node),
			"duration", duration,
		)
	}

	return result, err
}

func nodeLabel(info reactive.NodeInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("node-%d", info.ID)
}
