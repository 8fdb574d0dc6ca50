// Package agent keeps the conversation with the model and runs the chat
// turns, including the tool calls the model asks for.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmuk/lagos/pkg/ai"
	"github.com/jmuk/lagos/pkg/editor"
	"github.com/jmuk/lagos/pkg/tools"
)

// DefaultMaxToolRounds is the number of tool rounds in a turn when the
// configuration does not say.
const DefaultMaxToolRounds = 10

// NoResponse is the reply text when the model returns no candidate.
const NoResponse = "No response from AI"

var ErrEmptyMessage = errors.New("message is required")

// ToolCall is a tool call the model requested during a turn.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Reply is the outcome of a chat turn.
type Reply struct {
	Text string
	// ToolCalls is never nil.
	ToolCalls []ToolCall
	// Empty is set when the model returned no candidate.
	Empty bool
}

type Agent struct {
	model         ai.Model
	runner        *tools.ToolRunner
	editor        *editor.State
	history       History
	maxToolRounds int
	logger        *slog.Logger
}

// New creates an agent. runner may be nil when no tool is available.
func New(logger *slog.Logger, model ai.Model, runner *tools.ToolRunner, state *editor.State, maxToolRounds int) *Agent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if runner == nil {
		runner, _ = tools.NewToolRunner(logger, nil)
	}
	if state == nil {
		state = editor.NewState()
	}
	return &Agent{
		model:         model,
		runner:        runner,
		editor:        state,
		maxToolRounds: maxToolRounds,
		logger:        logger,
	}
}

// Editor returns the editor state shared with the editor tools.
func (a *Agent) Editor() *editor.State {
	return a.editor
}

// History returns a copy of the conversation.
func (a *Agent) History() []ai.Turn {
	return a.history.Turns()
}

func (a *Agent) ClearHistory() {
	a.logger.Info("Clearing history", "turns", a.history.Len())
	a.history.Clear()
}

func (a *Agent) runTools(ctx context.Context, calls []*ai.FunctionCall) ai.Turn {
	turn := ai.Turn{Role: ai.RoleUser}
	for _, call := range calls {
		res := a.runner.Run(ctx, call.Name, call.Args)
		turn.Parts = append(turn.Parts, ai.Part{FunctionResponse: &ai.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: res.Response(),
		}})
	}
	return turn
}

// Chat sends the message to the model, decorated with the pending editor
// context, and returns the reply. On a model failure the conversation and
// the pending editor context are left as they were before the call.
func (a *Agent) Chat(ctx context.Context, message string) (*Reply, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	taken := a.editor.Take()
	text := taken.Decorate(message)

	mark := a.history.Len()
	a.history.Append(ai.NewTextTurn(ai.RoleUser, text))
	// tool calls and their responses are sent to the model but are not kept
	// in the history.
	turns := a.history.Turns()

	reply := &Reply{ToolCalls: []ToolCall{}}
	var b strings.Builder
	noCandidate := false
	for round := 0; ; round++ {
		a.logger.Debug("Sending", "round", round, "turns", len(turns))
		resp, err := a.model.GenerateContent(ctx, turns)
		if err != nil {
			a.logger.Error("Model failed", "error", err)
			a.history.Truncate(mark)
			a.editor.Restore(taken)
			return nil, err
		}
		if len(resp.Candidates) == 0 {
			noCandidate = true
			break
		}
		cand := resp.Candidates[0]
		b.WriteString(cand.Text())
		calls := cand.FunctionCalls()
		for _, call := range calls {
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: call.Name, Args: call.Args})
		}
		if len(calls) == 0 {
			break
		}
		if round >= a.maxToolRounds {
			a.logger.Warn("Too many tool rounds, leaving the calls unexecuted", "rounds", round, "pending", len(calls))
			break
		}
		turns = append(turns, ai.Turn{Role: ai.RoleModel, Parts: cand.Parts}, a.runTools(ctx, calls))
	}

	reply.Text = b.String()
	if reply.Text == "" && noCandidate {
		a.logger.Warn("No candidate in the response")
		reply.Text = NoResponse
		reply.Empty = true
		return reply, nil
	}
	if reply.Text != "" {
		a.history.Append(ai.NewTextTurn(ai.RoleModel, reply.Text))
	}
	a.logger.Info("Replied", "length", len(reply.Text), "tool_calls", len(reply.ToolCalls))
	return reply, nil
}
