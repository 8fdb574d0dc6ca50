package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

type instrumented struct {
	ToolDefinition
	logger *slog.Logger
}

// Instrument wraps d so that every call is logged, and so that errors and
// panics of d come back as failed results instead.
func Instrument(logger *slog.Logger, d ToolDefinition) ToolDefinition {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &instrumented{
		ToolDefinition: d,
		logger:         logger.With("tool", d.Name()),
	}
}

func (t *instrumented) process(ctx context.Context, in map[string]any) (res Result, err error) {
	t.logger.Info("Calling tool", "args", in)
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Tool panicked", "panic", r, "stack", string(debug.Stack()))
			res = Failed(fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()
	res, err = t.ToolDefinition.process(ctx, in)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			t.logger.Warn("Tool failed", "error", err)
		} else {
			t.logger.Error("Tool failed unexpectedly", "error", err)
		}
		return Failed(err), nil
	}
	t.logger.Info("Tool finished", "status", truncate(res.Status, 280))
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
