package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type echoRequest struct {
	Text  string `json:"text"`
	Times int    `json:"times"`
}

func echoDef(proc func(ctx context.Context, req echoRequest) (Result, error)) ToolDefinition {
	return newToolDefinition(
		"echo",
		"Echo the text.",
		[]Param{
			{Name: "text", Type: TypeString, Required: true, Description: "the text"},
			{Name: "times", Type: TypeInteger, Description: "how many times"},
		},
		proc,
	)
}

func TestRequestSchemaKeepsOrder(t *testing.T) {
	d := echoDef(nil)
	encoded, err := json.Marshal(d.RequestSchema())
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "object",
		"properties": {
			"text": {"type": "string", "description": "the text"},
			"times": {"type": "integer", "description": "how many times"}
		},
		"required": ["text"]
	}`, string(encoded))
	require.Less(t,
		strings.Index(string(encoded), `"text"`),
		strings.Index(string(encoded), `"times"`))
}

func TestRunnerDecodesArguments(t *testing.T) {
	var got echoRequest
	r, err := NewToolRunner(discardLogger(), []ToolDefinition{echoDef(func(ctx context.Context, req echoRequest) (Result, error) {
		got = req
		return Structured("echoed", req), nil
	})})
	require.NoError(t, err)

	res := r.Run(context.Background(), "echo", map[string]any{"text": "hi", "times": 2.0})
	require.NoError(t, res.Err)
	require.Equal(t, echoRequest{Text: "hi", Times: 2}, got)
	require.Equal(t, map[string]any{"output": echoRequest{Text: "hi", Times: 2}}, res.Response())

	res = r.Run(context.Background(), "echo", map[string]any{"text": "hi", "times": 2.5})
	require.Error(t, res.Err)
}

func TestRunnerConvertsFailures(t *testing.T) {
	for _, tc := range []struct {
		name string
		proc func(ctx context.Context, req echoRequest) (Result, error)
		want string
	}{
		{
			name: "tool error",
			proc: func(ctx context.Context, req echoRequest) (Result, error) {
				return Result{}, &ToolError{errors.New("no such file")}
			},
			want: "tool call failed with error: no such file",
		},
		{
			name: "plain error",
			proc: func(ctx context.Context, req echoRequest) (Result, error) {
				return Result{}, errors.New("boom")
			},
			want: "tool call failed with error: boom",
		},
		{
			name: "panic",
			proc: func(ctx context.Context, req echoRequest) (Result, error) {
				panic("oops")
			},
			want: "tool call failed with error: panic: oops",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewToolRunner(discardLogger(), []ToolDefinition{echoDef(tc.proc)})
			require.NoError(t, err)
			res := r.Run(context.Background(), "echo", map[string]any{"text": "x"})
			require.Error(t, res.Err)
			require.Equal(t, tc.want, res.Status)
		})
	}
}

func TestRunnerUnknownTool(t *testing.T) {
	r, err := NewToolRunner(discardLogger(), nil)
	require.NoError(t, err)
	var observed []string
	r.SetObserver(func(name string, args map[string]any, res Result) {
		observed = append(observed, name)
	})
	res := r.Run(context.Background(), "missing", nil)
	require.EqualError(t, res.Err, "unknown tool missing")
	require.Equal(t, []string{"missing"}, observed)
}

func TestRunnerRejectsDuplicates(t *testing.T) {
	_, err := NewToolRunner(discardLogger(), []ToolDefinition{echoDef(nil), echoDef(nil)})
	require.Error(t, err)
}

type fakeManager struct {
	defs []ToolDefinition
}

func (m *fakeManager) ToolDefs(ctx context.Context) ([]ToolDefinition, error) {
	return m.defs, nil
}

func (m *fakeManager) Close() error {
	return nil
}

func TestCollectToolDefsLaterWins(t *testing.T) {
	first := echoDef(func(ctx context.Context, req echoRequest) (Result, error) {
		return Text("first"), nil
	})
	second := echoDef(func(ctx context.Context, req echoRequest) (Result, error) {
		return Text("second"), nil
	})
	defs, err := CollectToolDefs(context.Background(), discardLogger(), []Manager{
		&fakeManager{defs: []ToolDefinition{first}},
		&fakeManager{defs: []ToolDefinition{second}},
	})
	require.NoError(t, err)
	require.Len(t, defs, 1)

	r, err := NewToolRunner(discardLogger(), defs)
	require.NoError(t, err)
	require.Equal(t, "second", r.Run(context.Background(), "echo", map[string]any{"text": "x"}).Status)
}
