package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolDefinition is a tool the model can call.
type ToolDefinition interface {
	Name() string
	Description() string
	RequestSchema() *jsonschema.Schema
	process(ctx context.Context, in map[string]any) (Result, error)
}

// ToolError is an expected failure of a tool, such as a missing file.
type ToolError struct {
	error
}

func (e *ToolError) Unwrap() error {
	return e.error
}

// Result is the outcome of a tool call: a short status line and, for the
// structured tools, a payload.
type Result struct {
	Status  string
	Payload any
	Err     error
}

// Structured returns a successful result carrying a payload.
func Structured(status string, payload any) Result {
	return Result{Status: status, Payload: payload}
}

// Text returns a successful result which is just a text.
func Text(text string) Result {
	return Result{Status: text}
}

// Failed converts err into a failed result.
func Failed(err error) Result {
	return Result{
		Status: fmt.Sprintf("tool call failed with error: %v", err),
		Err:    err,
	}
}

// Response returns the value sent back to the model.
func (r Result) Response() map[string]any {
	if r.Err != nil {
		return map[string]any{"error": r.Status}
	}
	if r.Payload != nil {
		return map[string]any{"output": r.Payload}
	}
	return map[string]any{"output": r.Status}
}

type toolDefinition[Req any] struct {
	name        string
	description string
	params      []Param
	schema      *jsonschema.Schema
	proc        func(ctx context.Context, req Req) (Result, error)
}

func newToolDefinition[Req any](
	name, description string,
	params []Param,
	proc func(ctx context.Context, req Req) (Result, error),
) *toolDefinition[Req] {
	return &toolDefinition[Req]{
		name:        name,
		description: description,
		params:      params,
		schema:      objectSchema(params),
		proc:        proc,
	}
}

func (d *toolDefinition[Req]) Name() string {
	return d.name
}

func (d *toolDefinition[Req]) Description() string {
	return d.description
}

func (d *toolDefinition[Req]) RequestSchema() *jsonschema.Schema {
	return d.schema
}

func (d *toolDefinition[Req]) process(ctx context.Context, in map[string]any) (Result, error) {
	logger := getLogger(ctx)
	if err := validateArgs(d.params, in); err != nil {
		logger.Error("Invalid arguments", "tool", d.name, "error", err)
		return Result{}, &ToolError{err}
	}
	// Might not be ideal as it copies the data.
	jsonIn, err := json.Marshal(in)
	if err != nil {
		logger.Error("Failed to marshal input", "error", err)
		return Result{}, err
	}
	var req Req
	if err := json.Unmarshal(jsonIn, &req); err != nil {
		logger.Error("Failed to unmarshal input", "error", err)
		return Result{}, &ToolError{err}
	}
	return d.proc(ctx, req)
}
