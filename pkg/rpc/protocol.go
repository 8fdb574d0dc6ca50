// Package rpc implements the line-delimited JSON-RPC bridge between the
// editor and the agent.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/jmuk/lagos/pkg/agent"
)

const Version = "2.0"

// Error codes of JSON-RPC 2.0.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one inbound line. ID is kept as raw JSON and echoed verbatim.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one outbound line. A nil ID is written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidParams(format string, args ...any) *Error {
	return newError(CodeInvalidParams, format, args...)
}

func newResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

func newErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

// ChatResult is the result of the chat-like methods.
type ChatResult struct {
	Response  string           `json:"response"`
	Type      string           `json:"type"`
	ToolCalls []agent.ToolCall `json:"tool_calls"`
}

type StatusResult struct {
	Status string `json:"status"`
}

var statusOK = StatusResult{Status: "ok"}

type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type HistoryResult struct {
	History []HistoryEntry `json:"history"`
}
