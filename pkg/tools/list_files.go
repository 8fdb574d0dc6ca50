package tools

import (
	"context"
	"fmt"
	"slices"
)

type listFilesRequest struct {
	Path string `json:"path"`
}

func (ft *FileTools) listFiles(ctx context.Context, req listFilesRequest) (Result, error) {
	logger := getLogger(ctx).With("path", req.Path)
	rel, err := ft.resolve(req.Path)
	if err != nil {
		logger.Warn("Rejected path", "error", err)
		return Result{}, err
	}
	dir, err := ft.root.Open(rel)
	if err != nil {
		logger.Error("Failed to open", "error", err)
		return Result{}, &ToolError{err}
	}
	defer dir.Close()
	ents, err := dir.ReadDir(-1)
	if err != nil {
		logger.Error("Failed to read the directory", "error", err)
		return Result{}, &ToolError{err}
	}
	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		names = append(names, ent.Name())
	}
	slices.Sort(names)
	return Structured(fmt.Sprintf("Listed %d", len(names)), names), nil
}
