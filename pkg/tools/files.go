package tools

import (
	"context"
	"os"
)

// FileTools are the read-only tools on the project directory.
type FileTools struct {
	guard *PathGuard
	root  *os.Root
}

func NewFiles(projectRoot string) (*FileTools, error) {
	guard, err := NewPathGuard(projectRoot)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(guard.Root())
	if err != nil {
		return nil, err
	}
	return &FileTools{guard: guard, root: root}, nil
}

// Guard returns the path guard of the project directory.
func (ft *FileTools) Guard() *PathGuard {
	return ft.guard
}

func (ft *FileTools) Close() error {
	return ft.root.Close()
}

// resolve checks p against the project directory and returns the path
// relative to it.
func (ft *FileTools) resolve(p string) (string, error) {
	_, rel, err := ft.guard.Resolve(p)
	if err != nil {
		return "", &ToolError{err}
	}
	return rel, nil
}

func (ft *FileTools) ToolDefs(ctx context.Context) ([]ToolDefinition, error) {
	return []ToolDefinition{
		newToolDefinition(
			"read_file",
			"Read a text file from the project directory.",
			[]Param{
				{Name: "path", Type: TypeString, Required: true, Description: "Path to a text file (can be relative or absolute)."},
			},
			ft.readFile,
		),
		newToolDefinition(
			"list_files",
			"List all files and directories in a given path.",
			[]Param{
				{Name: "path", Type: TypeString, Required: true, Description: "Path to the directory to list (can be relative or absolute)."},
			},
			ft.listFiles,
		),
		newToolDefinition(
			"edit_file",
			"Provides instructions to the user on how to edit a file. This tool cannot directly edit files.",
			[]Param{
				{Name: "path", Type: TypeString, Required: true, Description: "The path to the file to be edited."},
				{Name: "instructions", Type: TypeString, Required: true, Description: "Instructions on how to edit the file."},
			},
			ft.editFile,
		),
	}, nil
}
