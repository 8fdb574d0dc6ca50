package tools

import (
	"context"
	"fmt"
)

type editFileRequest struct {
	Path         string `json:"path"`
	Instructions string `json:"instructions"`
}

func (ft *FileTools) editFile(ctx context.Context, req editFileRequest) (Result, error) {
	if _, err := ft.resolve(req.Path); err != nil {
		getLogger(ctx).Warn("Rejected path", "path", req.Path, "error", err)
		return Result{}, err
	}
	return Text(fmt.Sprintf(
		"To edit the file '%s', follow these instructions:\n%s\n\nNote: I cannot directly edit the file. You need to manually make these changes.",
		req.Path, req.Instructions,
	)), nil
}
