package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// Observer is notified after each tool call.
type Observer func(name string, args map[string]any, res Result)

// ToolRunner runs the tools by their names. Every tool is instrumented, so
// Run never fails; failures are reported in the result.
type ToolRunner struct {
	defs     []ToolDefinition
	defsMap  map[string]ToolDefinition
	observer Observer
}

func NewToolRunner(logger *slog.Logger, defs []ToolDefinition) (*ToolRunner, error) {
	m := make(map[string]ToolDefinition, len(defs))
	instrumentedDefs := make([]ToolDefinition, 0, len(defs))
	for _, d := range defs {
		if _, ok := m[d.Name()]; ok {
			return nil, fmt.Errorf("duplicated tool name %s", d.Name())
		}
		id := Instrument(logger, d)
		m[d.Name()] = id
		instrumentedDefs = append(instrumentedDefs, id)
	}
	return &ToolRunner{defs: instrumentedDefs, defsMap: m}, nil
}

// Defs returns the tool definitions in registration order.
func (r *ToolRunner) Defs() []ToolDefinition {
	return append([]ToolDefinition(nil), r.defs...)
}

// SetObserver sets the function called after each tool call.
func (r *ToolRunner) SetObserver(o Observer) {
	r.observer = o
}

func (r *ToolRunner) Run(ctx context.Context, name string, in map[string]any) Result {
	var res Result
	if p, ok := r.defsMap[name]; ok {
		// instrumented definitions never return errors.
		res, _ = p.process(ctx, in)
	} else {
		res = Failed(fmt.Errorf("unknown tool %s", name))
	}
	if r.observer != nil {
		r.observer(name, in, res)
	}
	return res
}
