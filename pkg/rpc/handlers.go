package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmuk/lagos/pkg/agent"
	"github.com/jmuk/lagos/pkg/editor"
)

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// decodeParams decodes params into v. Absent params leave v untouched.
func decodeParams(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '{' {
		return invalidParams("Invalid params: params must be an object")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return invalidParams("Invalid params: %v", err)
	}
	return nil
}

type chatParams struct {
	Message string `json:"message"`
}

func (s *Server) chat(ctx context.Context, message string) (any, error) {
	reply, err := s.agent.Chat(ctx, message)
	if errors.Is(err, agent.ErrEmptyMessage) {
		return nil, invalidParams("Message is required")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return ChatResult{
		Response:  reply.Text,
		Type:      "text",
		ToolCalls: reply.ToolCalls,
	}, nil
}

func (s *Server) handleChat(ctx context.Context, params json.RawMessage) (any, error) {
	var p chatParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.chat(ctx, p.Message)
}

type explainParams struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (s *Server) handleExplain(ctx context.Context, params json.RawMessage) (any, error) {
	p := explainParams{Language: "unknown"}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.chat(ctx, fmt.Sprintf("Please explain this %s code:\n\n%s", p.Language, p.Code))
}

type fixParams struct {
	Code     string `json:"code"`
	Error    string `json:"error"`
	Language string `json:"language"`
}

func (s *Server) handleFix(ctx context.Context, params json.RawMessage) (any, error) {
	p := fixParams{Language: "unknown"}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Please fix this %s code", p.Language)
	if p.Error != "" {
		message += " that has this error: " + p.Error
	}
	return s.chat(ctx, message+":\n\n"+p.Code)
}

type refactorParams struct {
	Code        string `json:"code"`
	Instruction string `json:"instruction"`
	Language    string `json:"language"`
}

func (s *Server) handleRefactor(ctx context.Context, params json.RawMessage) (any, error) {
	p := refactorParams{Instruction: "refactor this code", Language: "unknown"}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.chat(ctx, fmt.Sprintf("Please refactor this %s code to %s:\n\n%s", p.Language, p.Instruction, p.Code))
}

type setContextParams struct {
	Buffer    *editor.Buffer `json:"buffer"`
	Selection string         `json:"selection"`
}

func (s *Server) handleSetContext(ctx context.Context, params json.RawMessage) (any, error) {
	var p setContextParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	s.agent.Editor().Set(editor.Context{Buffer: p.Buffer, Selection: p.Selection})
	s.logger.Debug("Context updated", "buffer", p.Buffer != nil, "selection", len(p.Selection))
	return statusOK, nil
}

func (s *Server) handleGetHistory(ctx context.Context, params json.RawMessage) (any, error) {
	turns := s.agent.History()
	entries := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, HistoryEntry{Role: string(t.Role), Text: t.Text()})
	}
	return HistoryResult{History: entries}, nil
}

func (s *Server) handleClearHistory(ctx context.Context, params json.RawMessage) (any, error) {
	s.agent.ClearHistory()
	return statusOK, nil
}
