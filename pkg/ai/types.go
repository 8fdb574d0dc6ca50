// Package ai defines the conversation types shared by the model backends.
package ai

import (
	"context"
	"strings"

	"github.com/jmuk/lagos/pkg/tools"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Part is a segment of a turn. Exactly one of the fields is set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// Turn is one message of the conversation.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func NewTextTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the text parts of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Candidate is one of the alternative replies of the model.
type Candidate struct {
	Parts        []Part
	FinishReason string
}

// Text concatenates the text parts of the candidate.
func (c Candidate) Text() string {
	return Turn{Parts: c.Parts}.Text()
}

// FunctionCalls returns the function calls requested in the candidate.
func (c Candidate) FunctionCalls() []*FunctionCall {
	var calls []*FunctionCall
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

type Response struct {
	Candidates []Candidate
}

// Options are the settings shared by all the backends.
type Options struct {
	SystemPrompt    string
	MaxOutputTokens int32
	Temperature     float32
	Tools           []tools.ToolDefinition
}

// Model generates the next turn of the conversation.
type Model interface {
	GenerateContent(ctx context.Context, turns []Turn) (*Response, error)
}
