package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/jmuk/lagos/pkg/agent"
)

// defaultMaxLineSize bounds a single request line. Buffers are sent whole.
const defaultMaxLineSize = 64 << 20

// Server answers the requests of the editor, one line at a time.
type Server struct {
	agent       *agent.Agent
	handlers    map[string]handlerFunc
	logger      *slog.Logger
	maxLineSize int
}

func NewServer(logger *slog.Logger, a *agent.Agent) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		agent:       a,
		logger:      logger,
		maxLineSize: defaultMaxLineSize,
	}
	s.handlers = map[string]handlerFunc{
		"chat":          s.handleChat,
		"ask":           s.handleChat,
		"explain":       s.handleExplain,
		"fix":           s.handleFix,
		"refactor":      s.handleRefactor,
		"set_context":   s.handleSetContext,
		"get_history":   s.handleGetHistory,
		"clear_history": s.handleClearHistory,
	}
	return s
}

func (s *Server) dispatch(ctx context.Context, h handlerFunc, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			s.logger.Error("Handler panicked", "panic", r, "stack", stack)
			result = nil
			err = &Error{
				Code:    CodeInternalError,
				Message: "Internal error",
				Data:    fmt.Sprintf("panic: %v\n%s", r, stack),
			}
		}
	}()
	return h(ctx, params)
}

// HandleLine answers a single request line. It returns nil for a blank line.
func (s *Server) HandleLine(ctx context.Context, line []byte) *Response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		s.logger.Warn("Malformed line", "error", err)
		return newErrorResponse(nil, newError(CodeParseError, "Parse error: %v", err))
	}
	if line[0] != '{' {
		return newErrorResponse(nil, newError(CodeInvalidRequest, "Invalid Request: not an object"))
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		// the id is still echoed when only the other members are bad.
		var idOnly struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(line, &idOnly) == nil {
			req.ID = idOnly.ID
		}
		return newErrorResponse(req.ID, newError(CodeInvalidRequest, "Invalid Request: %v", err))
	}
	if req.Method == "" {
		return newErrorResponse(req.ID, newError(CodeInvalidRequest, "Invalid Request: method is required"))
	}

	logger := s.logger.With("method", req.Method, "id", string(req.ID))
	h, ok := s.handlers[req.Method]
	if !ok {
		logger.Warn("Unknown method")
		return newErrorResponse(req.ID, newError(CodeMethodNotFound, "Method not found: %s", req.Method))
	}
	logger.Info("Handling request")
	result, err := s.dispatch(ctx, h, req.Params)
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &Error{Code: CodeInternalError, Message: "Internal error", Data: err.Error()}
		}
		logger.Warn("Request failed", "code", rpcErr.Code, "error", rpcErr.Message)
		return newErrorResponse(req.ID, rpcErr)
	}
	logger.Info("Request handled")
	return newResult(req.ID, result)
}

func (s *Server) encode(resp *Response) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		s.logger.Error("Failed to encode the response", "error", err)
		buf.Reset()
		fallback := newErrorResponse(resp.ID, &Error{Code: CodeInternalError, Message: "Internal error", Data: err.Error()})
		if err := enc.Encode(fallback); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type inputLine struct {
	data    []byte
	tooLong bool
}

// readLine reads the next line. The bytes beyond max are discarded and the
// line is reported as too long.
func readLine(br *bufio.Reader, max int) (inputLine, error) {
	var l inputLine
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return l, err
		}
		if !l.tooLong {
			if len(l.data)+len(chunk) > max {
				l.tooLong = true
				l.data = nil
			} else {
				l.data = append(l.data, chunk...)
			}
		}
		if !isPrefix {
			return l, nil
		}
	}
}

// Serve reads requests from r and writes one response line per request to
// w, until r is exhausted or ctx is done. A request in flight when ctx is
// done gets no response.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan inputLine)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		br := bufio.NewReader(r)
		for {
			line, err := readLine(br, s.maxLineSize)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("Serving")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					s.logger.Error("Failed to read", "error", err)
					return err
				default:
					return nil
				}
			}
			var resp *Response
			if line.tooLong {
				s.logger.Warn("Line too long", "limit", s.maxLineSize)
				resp = newErrorResponse(nil, newError(CodeInvalidRequest, "Invalid Request: line exceeds %d bytes", s.maxLineSize))
			} else {
				resp = s.HandleLine(ctx, line.data)
			}
			if resp == nil {
				continue
			}
			if ctx.Err() != nil {
				s.logger.Info("Interrupted, dropping the response", "id", string(resp.ID))
				return nil
			}
			data, err := s.encode(resp)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
	}
}
