package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jmuk/lagos/pkg/agent"
	"github.com/jmuk/lagos/pkg/ai"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply    func(ctx context.Context, turns []ai.Turn) (*ai.Response, error)
	messages []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
	m.messages = append(m.messages, turns[len(turns)-1].Text())
	if m.reply != nil {
		return m.reply(ctx, turns)
	}
	return &ai.Response{Candidates: []ai.Candidate{{Parts: []ai.Part{{Text: "hello"}}}}}, nil
}

func newTestServer(m *fakeModel) (*Server, *agent.Agent) {
	a := agent.New(nil, m, nil, nil, agent.DefaultMaxToolRounds)
	return NewServer(nil, a), a
}

func serve(t *testing.T, s *Server, lines ...string) []string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, s.Serve(t.Context(), in, &out))
	if out.Len() == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

func decodeResponse(t *testing.T, line string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &v))
	return v
}

func errorCode(t *testing.T, line string) float64 {
	t.Helper()
	resp := decodeResponse(t, line)
	e, ok := resp["error"].(map[string]any)
	require.True(t, ok, "not an error response: %s", line)
	return e["code"].(float64)
}

func TestServeScenario(t *testing.T) {
	s, a := newTestServer(&fakeModel{})
	out := serve(t, s,
		`{"method":"chat","params":{"message":"hi"},"id":1}`,
		`{"method":"bogus","id":2}`,
		`{not json`,
		``,
		`{"method":"get_history","id":3}`,
	)
	require.Len(t, out, 4)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"response":"hello","type":"text","tool_calls":[]}}`, out[0])
	require.Equal(t, `{"jsonrpc":"2.0","id":2,"error":{"code":-32601,"message":"Method not found: bogus"}}`, out[1])

	parseErr := decodeResponse(t, out[2])
	require.Nil(t, parseErr["id"])
	require.Contains(t, parseErr, "id")
	require.Equal(t, float64(CodeParseError), errorCode(t, out[2]))
	require.True(t, strings.HasPrefix(parseErr["error"].(map[string]any)["message"].(string), "Parse error: "))

	require.Equal(t, `{"jsonrpc":"2.0","id":3,"result":{"history":[{"role":"user","text":"hi"},{"role":"model","text":"hello"}]}}`, out[3])
	require.Len(t, a.History(), 2)
}

func TestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(&fakeModel{})
	out := serve(t, s,
		`{"method":"clear_history","id":"abc"}`,
		`{"method":"clear_history"}`,
		`{"method":"clear_history","id":null}`,
		`{"method":"clear_history","id":{"seq":7}}`,
	)
	require.Equal(t, []string{
		`{"jsonrpc":"2.0","id":"abc","result":{"status":"ok"}}`,
		`{"jsonrpc":"2.0","id":null,"result":{"status":"ok"}}`,
		`{"jsonrpc":"2.0","id":null,"result":{"status":"ok"}}`,
		`{"jsonrpc":"2.0","id":{"seq":7},"result":{"status":"ok"}}`,
	}, out)
}

func TestChatMissingMessage(t *testing.T) {
	m := &fakeModel{}
	s, a := newTestServer(m)
	out := serve(t, s,
		`{"method":"chat","params":{},"id":1}`,
		`{"method":"ask","id":2}`,
		`{"method":"chat","params":{"message":""},"id":3}`,
		`{"method":"chat","params":{"message":42},"id":4}`,
		`{"method":"chat","params":["hi"],"id":5}`,
	)
	require.Len(t, out, 5)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Message is required"}}`, out[0])
	for _, line := range out {
		require.Equal(t, float64(CodeInvalidParams), errorCode(t, line))
	}
	require.Empty(t, a.History())
	require.Empty(t, m.messages)
}

func TestClearHistory(t *testing.T) {
	s, a := newTestServer(&fakeModel{})
	out := serve(t, s,
		`{"method":"ask","params":{"message":"hi"},"id":1}`,
		`{"method":"clear_history","id":2}`,
		`{"method":"get_history","id":3}`,
	)
	require.Equal(t, `{"jsonrpc":"2.0","id":3,"result":{"history":[]}}`, out[2])
	require.Empty(t, a.History())
}

func TestTemplates(t *testing.T) {
	for _, tc := range []struct {
		name    string
		request string
		want    string
	}{
		{
			name:    "explain",
			request: `{"method":"explain","params":{"code":"x = 1","language":"python"},"id":1}`,
			want:    "Please explain this python code:\n\nx = 1",
		},
		{
			name:    "explain default language",
			request: `{"method":"explain","params":{"code":"x = 1"},"id":1}`,
			want:    "Please explain this unknown code:\n\nx = 1",
		},
		{
			name:    "fix with error",
			request: `{"method":"fix","params":{"code":"x = ","error":"SyntaxError","language":"python"},"id":1}`,
			want:    "Please fix this python code that has this error: SyntaxError:\n\nx = ",
		},
		{
			name:    "fix without error",
			request: `{"method":"fix","params":{"code":"x = "},"id":1}`,
			want:    "Please fix this unknown code:\n\nx = ",
		},
		{
			name:    "refactor",
			request: `{"method":"refactor","params":{"code":"f()","instruction":"use a loop","language":"go"},"id":1}`,
			want:    "Please refactor this go code to use a loop:\n\nf()",
		},
		{
			name:    "refactor defaults",
			request: `{"method":"refactor","params":{"code":"f()"},"id":1}`,
			want:    "Please refactor this unknown code to refactor this code:\n\nf()",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeModel{}
			s, _ := newTestServer(m)
			out := serve(t, s, tc.request)
			require.Len(t, out, 1)
			require.Contains(t, decodeResponse(t, out[0]), "result")
			require.Equal(t, []string{tc.want}, m.messages)
		})
	}
}

func TestSetContext(t *testing.T) {
	m := &fakeModel{}
	s, _ := newTestServer(m)
	out := serve(t, s,
		`{"method":"set_context","params":{"buffer":{"name":"main.py","bufnr":3,"filetype":"python"},"selection":"x = 1"},"id":1}`,
		`{"method":"chat","params":{"message":"why?"},"id":2}`,
		`{"method":"chat","params":{"message":"again"},"id":3}`,
	)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"status":"ok"}}`, out[0])
	require.Equal(t, []string{
		"[Selected text:\nx = 1\n]\n[Current buffer: main.py]\nwhy?",
		"again",
	}, m.messages)
}

func TestModelFailure(t *testing.T) {
	m := &fakeModel{reply: func(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
		return nil, errors.New("API key not valid")
	}}
	s, a := newTestServer(m)
	out := serve(t, s,
		`{"method":"chat","params":{"message":"hi"},"id":1}`,
		`{"method":"get_history","id":2}`,
	)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"API key not valid"}}`, out[0])
	require.Equal(t, `{"jsonrpc":"2.0","id":2,"result":{"history":[]}}`, out[1])
	require.Empty(t, a.History())
}

func TestNoCandidate(t *testing.T) {
	m := &fakeModel{reply: func(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
		return &ai.Response{}, nil
	}}
	s, a := newTestServer(m)
	out := serve(t, s, `{"method":"chat","params":{"message":"hi"},"id":1}`)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"response":"No response from AI","type":"text","tool_calls":[]}}`, out[0])
	require.Equal(t, []ai.Turn{ai.NewTextTurn(ai.RoleUser, "hi")}, a.History())
}

func TestInvalidRequest(t *testing.T) {
	s, _ := newTestServer(&fakeModel{})
	out := serve(t, s,
		`[1,2]`,
		`"chat"`,
		`{"params":{},"id":9}`,
		`{"method":"get_history","id":10}`,
	)
	require.Len(t, out, 4)
	require.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request: not an object"}}`, out[0])
	require.Equal(t, float64(CodeInvalidRequest), errorCode(t, out[1]))
	require.Equal(t, float64(9), decodeResponse(t, out[2])["id"])
	require.Equal(t, float64(CodeInvalidRequest), errorCode(t, out[2]))
	require.Contains(t, decodeResponse(t, out[3]), "result")
}

func TestInvalidMemberKeepsID(t *testing.T) {
	s, a := newTestServer(&fakeModel{})
	out := serve(t, s,
		`{"method":5,"id":3}`,
		`{"jsonrpc":2,"method":"chat","params":{"message":"hi"},"id":"x"}`,
	)
	require.Len(t, out, 2)
	require.Equal(t, float64(3), decodeResponse(t, out[0])["id"])
	require.Equal(t, float64(CodeInvalidRequest), errorCode(t, out[0]))
	require.Equal(t, "x", decodeResponse(t, out[1])["id"])
	require.Equal(t, float64(CodeInvalidRequest), errorCode(t, out[1]))
	require.Empty(t, a.History())
}

func TestLongLineIsRejected(t *testing.T) {
	s, _ := newTestServer(&fakeModel{})
	s.maxLineSize = 32
	out := serve(t, s,
		`{"method":"chat","params":{"message":"`+strings.Repeat("a", 100)+`"},"id":1}`,
		`{"method":"get_history","id":2}`,
	)
	require.Len(t, out, 2)
	require.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request: line exceeds 32 bytes"}}`, out[0])
	require.Equal(t, float64(2), decodeResponse(t, out[1])["id"])
	require.Contains(t, decodeResponse(t, out[1]), "result")
}

func TestHandlerPanic(t *testing.T) {
	s, _ := newTestServer(&fakeModel{})
	s.handlers["boom"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		panic("kaboom")
	}
	out := serve(t, s,
		`{"method":"boom","id":1}`,
		`{"method":"get_history","id":2}`,
	)
	require.Len(t, out, 2)
	resp := decodeResponse(t, out[0])
	e := resp["error"].(map[string]any)
	require.Equal(t, float64(CodeInternalError), e["code"])
	require.Equal(t, "Internal error", e["message"])
	require.Contains(t, e["data"], "kaboom")
	require.Equal(t, `{"jsonrpc":"2.0","id":2,"result":{"history":[]}}`, out[1])
}

func TestServeDropsResponseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	m := &fakeModel{reply: func(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
		cancel()
		return nil, ctx.Err()
	}}
	s, a := newTestServer(m)
	var out bytes.Buffer
	in := strings.NewReader(`{"method":"clear_history","id":1}` + "\n" + `{"method":"chat","params":{"message":"hi"},"id":2}` + "\n")
	require.NoError(t, s.Serve(ctx, in, &out))
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"status":"ok"}}`+"\n", out.String())
	require.Empty(t, a.History())
}

func TestResponseDoesNotEscapeHTML(t *testing.T) {
	m := &fakeModel{reply: func(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
		return &ai.Response{Candidates: []ai.Candidate{{Parts: []ai.Part{{Text: "if a < b && c > d {}"}}}}}, nil
	}}
	s, _ := newTestServer(m)
	out := serve(t, s, `{"method":"chat","params":{"message":"hi"},"id":1}`)
	require.Contains(t, out[0], `"response":"if a < b && c > d {}"`)
}
