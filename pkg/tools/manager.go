package tools

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/jmuk/lagos/pkg/editor"
)

// Manager provides a group of tools.
type Manager interface {
	ToolDefs(ctx context.Context) ([]ToolDefinition, error)
	Close() error
}

// NewManagers returns the managers for the project directory: the MCP
// servers first and then the built-in tools.
func NewManagers(projectRoot string, state *editor.State, mcpConfigs []MCPConfig) ([]Manager, error) {
	mcpManagers := map[string]Manager{}
	for _, mcpc := range mcpConfigs {
		if m := NewMCP(mcpc); m != nil {
			mcpManagers[mcpc.Name] = m
		}
	}
	var keys []string
	for k := range mcpManagers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	mgrs := make([]Manager, 0, len(keys)+2)
	for _, k := range keys {
		mgrs = append(mgrs, mcpManagers[k])
	}

	ft, err := NewFiles(projectRoot)
	if err != nil {
		return nil, err
	}
	// Append files and editor at the end so that their implementation will
	// always be used even if some MCP tool names happen to conflict.
	return append(mgrs, ft, NewEditorTools(state)), nil
}

// CollectToolDefs gathers the tools of all the managers. For a duplicated
// name the later manager wins.
func CollectToolDefs(ctx context.Context, logger *slog.Logger, mgrs []Manager) ([]ToolDefinition, error) {
	var defs []ToolDefinition
	index := map[string]int{}
	for _, m := range mgrs {
		tds, err := m.ToolDefs(ctx)
		if err != nil {
			return nil, err
		}
		for _, td := range tds {
			if i, ok := index[td.Name()]; ok {
				logger.Warn("Tool is overridden", "tool", td.Name())
				defs[i] = td
				continue
			}
			index[td.Name()] = len(defs)
			defs = append(defs, td)
		}
	}
	return defs, nil
}

// CloseAll closes every manager.
func CloseAll(mgrs []Manager) error {
	var errs []error
	for _, m := range mgrs {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
