package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

type readFileRequest struct {
	Path string `json:"path"`
}

type readFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func countLines(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func (ft *FileTools) readFile(ctx context.Context, req readFileRequest) (Result, error) {
	logger := getLogger(ctx).With("path", req.Path)
	rel, err := ft.resolve(req.Path)
	if err != nil {
		logger.Warn("Rejected path", "error", err)
		return Result{}, err
	}
	logger.Debug("Reading file", "rel", rel)
	data, err := ft.root.ReadFile(rel)
	if err != nil {
		logger.Error("Failed to read", "error", err)
		return Result{}, &ToolError{err}
	}
	if !utf8.Valid(data) {
		return Result{}, &ToolError{fmt.Errorf("%s is not a UTF-8 text file", req.Path)}
	}
	content := string(data)
	return Structured(
		fmt.Sprintf("Read %d lines", countLines(content)),
		readFileResponse{Path: rel, Content: content},
	), nil
}
