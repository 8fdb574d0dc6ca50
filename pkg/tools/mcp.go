package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/jmuk/lagos/pkg/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPConfig defines a configuration to connect to a MCP server.
type MCPConfig struct {
	Name           string            `toml:"name"`
	Command        []string          `toml:"command,omitempty"`
	Endpoint       string            `toml:"endpoint,omitempty"`
	RequestHeaders map[string]string `toml:"request_headers,omitempty"`
}

func (c MCPConfig) String() string {
	if c.Endpoint != "" {
		return fmt.Sprintf("%s: %s", c.Name, c.Endpoint)
	}
	return fmt.Sprintf("%s: %s", c.Name, strings.Join(c.Command, " "))
}

// transportFactory opens a new connection to the server for every
// session.
type transportFactory func() mcp.Transport

func commandTransport(command []string) transportFactory {
	return func() mcp.Transport {
		return &mcp.CommandTransport{
			Command: exec.Command(command[0], command[1:]...),
		}
	}
}

type headerAddingRoundTripper struct {
	headers      http.Header
	roundTripper http.RoundTripper
}

func (rt *headerAddingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	for k, v := range rt.headers {
		if _, ok := r.Header[k]; !ok {
			r.Header[k] = v
		}
	}
	return rt.roundTripper.RoundTrip(r)
}

func sseTransport(endpoint string, headers http.Header) transportFactory {
	return func() mcp.Transport {
		transport := &mcp.SSEClientTransport{Endpoint: endpoint}
		if len(headers) > 0 {
			transport.HTTPClient = &http.Client{
				Transport: &headerAddingRoundTripper{
					headers:      headers,
					roundTripper: http.DefaultTransport,
				},
			}
		}
		return transport
	}
}

// MCPTool provides the tools of a MCP server.
type MCPTool struct {
	name    string
	client  *mcp.Client
	factory transportFactory

	clientSession *mcp.ClientSession
}

func newMCPTool(name string, factory transportFactory) *MCPTool {
	var mt *MCPTool
	clientOpts := &mcp.ClientOptions{
		LoggingMessageHandler: func(ctx context.Context, msg *mcp.LoggingMessageRequest) {
			mt.logMessage(ctx, msg)
		},
	}
	mt = &MCPTool{
		name:    name,
		factory: factory,
		client: mcp.NewClient(
			&mcp.Implementation{
				Name:    "lagos",
				Version: "v0.1.0",
			},
			clientOpts,
		),
	}
	return mt
}

// NewMCP creates the tool manager for c. It returns nil when c has
// neither a command nor an endpoint.
func NewMCP(c MCPConfig) *MCPTool {
	if c.Endpoint != "" {
		return NewHTTPMCP(c.Name, c.Endpoint, c.RequestHeaders)
	}
	if len(c.Command) > 0 {
		return NewCommandMCP(c.Name, c.Command)
	}
	return nil
}

func NewCommandMCP(name string, command []string) *MCPTool {
	return newMCPTool(name, commandTransport(command))
}

func NewHTTPMCP(name, endpoint string, headers map[string]string) *MCPTool {
	var h http.Header
	if len(headers) > 0 {
		h = http.Header{}
		for k, v := range headers {
			h.Add(k, v)
		}
	}
	return newMCPTool(name, sseTransport(endpoint, h))
}

type mcpToolDefinition struct {
	name        string
	description string
	inSchema    *jsonschema.Schema

	mt *MCPTool
}

func (mtd *mcpToolDefinition) Name() string {
	return mtd.name
}

func (mtd *mcpToolDefinition) Description() string {
	return mtd.description
}

func (mtd *mcpToolDefinition) RequestSchema() *jsonschema.Schema {
	return mtd.inSchema
}

func (mtd *mcpToolDefinition) process(ctx context.Context, in map[string]any) (Result, error) {
	return mtd.mt.process(ctx, mtd.name, in)
}

func (mt *MCPTool) Close() error {
	var err error
	if mt.clientSession != nil {
		err = mt.clientSession.Close()
		mt.clientSession = nil
	}
	return err
}

func (mt *MCPTool) logMessage(ctx context.Context, msg *mcp.LoggingMessageRequest) {
	s, ok := session.FromContext(ctx)
	if !ok {
		// Do nothing.
		return
	}
	loggerName := "mcp"
	p := msg.Params
	if p.Logger != "" && !strings.Contains(p.Logger, "/") {
		loggerName += "-" + p.Logger
	}
	logger, err := s.GetLogger(loggerName)
	if err != nil {
		log.Printf("Failed to get the logger: %v", err)
		return
	}
	lvl := slog.LevelInfo
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelError, slog.LevelWarn, slog.LevelInfo} {
		if strings.EqualFold(l.String(), string(p.Level)) {
			lvl = l
			break
		}
	}
	logger.Log(ctx, lvl, "log request", "server", mt.name, "data", p.Data)
}

func (mt *MCPTool) newSession(ctx context.Context) (*mcp.ClientSession, error) {
	transport := mt.factory()
	if s, ok := session.FromContext(ctx); ok {
		logname := strings.ReplaceAll(mt.name, "/", "_")
		if len(logname) > 64 {
			logname = logname[:64]
		}
		logFile, err := s.GetLogFile(fmt.Sprintf("mcp-%s-log.txt", logname))
		if err != nil {
			return nil, err
		}
		transport = &mcp.LoggingTransport{
			Transport: transport,
			Writer:    logFile,
		}
	}
	return mt.client.Connect(ctx, transport, nil)
}

func (mt *MCPTool) getSession(ctx context.Context) (*mcp.ClientSession, error) {
	if mt.clientSession != nil {
		return mt.clientSession, nil
	}
	cs, err := mt.newSession(ctx)
	if err != nil {
		return nil, err
	}
	mt.clientSession = cs
	return cs, nil
}

func (mt *MCPTool) process(ctx context.Context, name string, in map[string]any) (Result, error) {
	sess, err := mt.getSession(ctx)
	if err != nil {
		return Result{}, err
	}
	logger := getLogger(ctx).With("server", mt.name)
	result, err := sess.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: in,
	})
	if err != nil {
		return Result{}, err
	}
	return toResult(logger, name, result)
}

// toResult keeps the text contents of result. The structured content wins
// over the texts when the server sends one.
func toResult(logger *slog.Logger, name string, result *mcp.CallToolResult) (Result, error) {
	texts := []string{}
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		} else {
			logger.Debug("Skipping non-text content", "content", content)
		}
	}
	if result.IsError {
		return Result{}, &ToolError{errors.New(strings.Join(texts, ""))}
	}
	status := fmt.Sprintf("%s returned %d contents", name, len(result.Content))
	if result.StructuredContent != nil {
		return Structured(status, result.StructuredContent), nil
	}
	return Structured(status, texts), nil
}

func toSchema(in any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(encoded, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (mt *MCPTool) ToolDefs(ctx context.Context) ([]ToolDefinition, error) {
	session, err := mt.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server %s: %w", mt.name, err)
	}
	defer session.Close()
	var cursor string
	var results []ToolDefinition
	for {
		tools, err := session.ListTools(ctx, &mcp.ListToolsParams{
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, t := range tools.Tools {
			inSchema, err := toSchema(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("bad input schema of %s: %w", t.Name, err)
			}
			results = append(results, &mcpToolDefinition{
				name:        t.Name,
				description: t.Description,
				inSchema:    inSchema,
				mt:          mt,
			})
		}
		if tools.NextCursor == "" {
			break
		}
		cursor = tools.NextCursor
	}
	return results, nil
}
