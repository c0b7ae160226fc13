package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m1gwings/treedrawer/tree"
	reactive "github.com/reactive-fn/reactive-go"
)

// GraphDebugExtension logs a dependency-graph visualization when an
// evaluation fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewGraphDebugExtension(extensions.NewSilentHandler())
//
// The extension logs at ERROR level for evaluation failures.
type GraphDebugExtension struct {
	reactive.BaseExtension
	logger *slog.Logger

	mu     sync.Mutex
	failed map[uint64]error
}

// NewGraphDebugExtension creates a new graph debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted
// output, or any other slog.Handler).
func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: reactive.NewBaseExtension("graph-debug"),
		logger:        slog.New(logHandler),
		failed:        make(map[uint64]error),
	}
}

// OnError logs the dependency graph when an evaluation fails
func (e *GraphDebugExtension) OnError(err error, op *reactive.Operation, m *reactive.Manager) {
	e.mu.Lock()
	e.failed[op.Node.ID] = err
	e.mu.Unlock()

	e.logger.Error("Evaluation Error",
		"node", nodeLabel(op.Node),
		"error", err.Error(),
		"operation", string(op.Kind),
		"dependency_graph", e.formatDependencyGraph(m.GraphSnapshot(), op.Node, err),
	)
}

// tryFormatHorizontalTree renders the propagation graph as a horizontal tree
// rooted at the source nodes.
func (e *GraphDebugExtension) tryFormatHorizontalTree(gs reactive.GraphSnapshot, failedID uint64) string {
	byID := make(map[uint64]reactive.NodeInfo, len(gs.Nodes))
	for _, info := range gs.Nodes {
		byID[info.ID] = info
	}

	// Roots are nodes nothing else feeds into: sources and isolated nodes.
	var roots []uint64
	for _, info := range gs.Nodes {
		if len(gs.Dependencies[info.ID]) == 0 {
			roots = append(roots, info.ID)
		}
	}
	if len(roots) == 0 {
		return ""
	}
	sort.Slice(roots, func(i, j int) bool {
		return e.label(byID[roots[i]]) < e.label(byID[roots[j]])
	})

	var rootNode *tree.Tree
	if len(roots) == 1 {
		rootNode = e.buildTree(roots[0], gs, byID, failedID, make(map[uint64]bool))
	} else {
		rootNode = tree.NewTree(tree.NodeString("Sources"))
		for _, root := range roots {
			if childTree := e.buildTree(root, gs, byID, failedID, make(map[uint64]bool)); childTree != nil {
				e.addTreeAsChild(rootNode, childTree)
			}
		}
	}

	if rootNode == nil {
		return ""
	}
	return rootNode.String()
}

// buildTree builds the dependent subtree below one node
func (e *GraphDebugExtension) buildTree(id uint64, gs reactive.GraphSnapshot, byID map[uint64]reactive.NodeInfo, failedID uint64, visited map[uint64]bool) *tree.Tree {
	if visited[id] {
		return nil
	}
	visited[id] = true

	info := byID[id]
	label := e.label(info)
	if id == failedID {
		label += " ❌"
	} else if !info.Failed && info.Version > 0 {
		label += " ✓"
	}

	node := tree.NewTree(tree.NodeString(label))

	children := append([]uint64(nil), gs.Dependents[id]...)
	sort.Slice(children, func(i, j int) bool {
		return e.label(byID[children[i]]) < e.label(byID[children[j]])
	})
	for _, child := range children {
		if childTree := e.buildTree(child, gs, byID, failedID, visited); childTree != nil {
			e.addTreeAsChild(node, childTree)
		}
	}

	return node
}

// addTreeAsChild adds a tree as a child to another tree node
func (e *GraphDebugExtension) addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		e.addTreeAsChild(newChild, grandchild)
	}
}

func (e *GraphDebugExtension) formatDependencyGraph(gs reactive.GraphSnapshot, failed reactive.NodeInfo, failedErr error) string {
	var sb strings.Builder

	if len(gs.Nodes) == 0 {
		sb.WriteString("\n(empty - no nodes tracked)")
		return sb.String()
	}

	if horizontalTree := e.tryFormatHorizontalTree(gs, failed.ID); horizontalTree != "" {
		sb.WriteString("\n")
		sb.WriteString(horizontalTree)
		sb.WriteString("\n")
	}

	sb.WriteString("\nDetailed View:\n")

	byID := make(map[uint64]reactive.NodeInfo, len(gs.Nodes))
	for _, info := range gs.Nodes {
		byID[info.ID] = info
	}

	entries := append([]reactive.NodeInfo(nil), gs.Nodes...)
	sort.Slice(entries, func(i, j int) bool {
		return e.label(entries[i]) < e.label(entries[j])
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, info := range entries {
		status := ""
		if info.ID == failed.ID {
			status = " ❌"
		} else if _, bad := e.failed[info.ID]; bad || info.Failed {
			status = " ❌"
		} else if info.Version > 0 {
			status = " ✓"
		}

		dependents := gs.Dependents[info.ID]
		if len(dependents) == 0 {
			sb.WriteString(fmt.Sprintf("  %s%s (no dependents)\n", e.label(info), status))
			continue
		}

		sb.WriteString(fmt.Sprintf("  %s%s\n", e.label(info), status))
		for i, depID := range dependents {
			depLabel := e.label(byID[depID])
			if depID == failed.ID {
				depLabel += " ❌ FAILED"
			} else if depErr, bad := e.failed[depID]; bad {
				depLabel = fmt.Sprintf("%s ❌ (error: %v)", depLabel, depErr)
			} else if byID[depID].Version > 0 {
				depLabel += " ✓"
			}

			if i == len(dependents)-1 {
				sb.WriteString(fmt.Sprintf("    └─> %s\n", depLabel))
			} else {
				sb.WriteString(fmt.Sprintf("    ├─> %s\n", depLabel))
			}
		}
	}

	if failedErr != nil {
		sb.WriteString("\nError Details:\n")
		sb.WriteString(fmt.Sprintf("  Node: %s\n", e.label(failed)))
		sb.WriteString(fmt.Sprintf("  Error: %v\n", failedErr))
	}

	return sb.String()
}

func (e *GraphDebugExtension) label(info reactive.NodeInfo) string {
	return nodeLabel(info)
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability
// with proper line breaks (especially for dependency graphs)
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Evaluation Error" {
		return h.handleEvaluationError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleEvaluationError(record slog.Record) error {
	var node, errorMsg, operation, dependencyGraph string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "node":
			node = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "dependency_graph":
			dependencyGraph = a.Value.String()
		}
		return true
	})

	writes := []func() error{
		func() error { _, err := fmt.Fprintln(h.writer); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer, "[GraphDebug] Evaluation Error"); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nFailed Node: %s\n", node); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Error: %s\n", errorMsg); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Operation: %s\n", operation); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nDependency Graph:%s", dependencyGraph); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer); return err },
	}

	for _, write := range writes {
		if err := write(); err != nil {
			return err
		}
	}

	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
