package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmuk/lagos/pkg/editor"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, dir string, state *editor.State) *ToolRunner {
	t.Helper()
	ft, err := NewFiles(dir)
	require.NoError(t, err)
	t.Cleanup(func() { ft.Close() })
	mgrs := []Manager{ft, NewEditorTools(state)}
	ctx := context.Background()
	defs, err := CollectToolDefs(ctx, discardLogger(), mgrs)
	require.NoError(t, err)
	r, err := NewToolRunner(discardLogger(), defs)
	require.NoError(t, err)
	return r
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "hello.txt"), "hello\nworld\n")
	writeFile(t, filepath.Join(dir, "empty.txt"), "  \n")
	r := newTestRunner(t, dir, editor.NewState())
	ctx := context.Background()

	res := r.Run(ctx, "read_file", map[string]any{"path": "sub/hello.txt"})
	require.NoError(t, res.Err)
	require.Equal(t, "Read 3 lines", res.Status)
	require.Equal(t, readFileResponse{Path: filepath.Join("sub", "hello.txt"), Content: "hello\nworld\n"}, res.Payload)

	res = r.Run(ctx, "read_file", map[string]any{"path": filepath.Join(dir, "empty.txt")})
	require.NoError(t, res.Err)
	require.Equal(t, "Read 0 lines", res.Status)
}

func TestReadFileOutsideProject(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "project")
	require.NoError(t, os.Mkdir(dir, 0755))
	writeFile(t, filepath.Join(parent, "secret.txt"), "secret")
	r := newTestRunner(t, dir, editor.NewState())

	for _, p := range []string{"../secret.txt", filepath.Join(parent, "secret.txt")} {
		res := r.Run(context.Background(), "read_file", map[string]any{"path": p})
		require.Error(t, res.Err)
		require.True(t, errors.Is(res.Err, fs.ErrPermission))
		require.True(t, strings.HasPrefix(res.Status, "tool call failed with error: "))
		require.NotContains(t, res.Status, "secret\n")
	}
}

func TestReadFileSymlinkEscape(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "project")
	require.NoError(t, os.Mkdir(dir, 0755))
	writeFile(t, filepath.Join(parent, "secret.txt"), "secret")
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks are not supported: %v", err)
	}
	r := newTestRunner(t, dir, editor.NewState())
	res := r.Run(context.Background(), "read_file", map[string]any{"path": "link.txt"})
	require.Error(t, res.Err)
}

func TestReadFileMissing(t *testing.T) {
	r := newTestRunner(t, t.TempDir(), editor.NewState())
	res := r.Run(context.Background(), "read_file", map[string]any{"path": "nope.txt"})
	require.Error(t, res.Err)
	require.True(t, errors.Is(res.Err, fs.ErrNotExist))
	require.Equal(t, map[string]any{"error": res.Status}, res.Response())
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "c")
	r := newTestRunner(t, dir, editor.NewState())

	res := r.Run(context.Background(), "list_files", map[string]any{"path": "."})
	require.NoError(t, res.Err)
	require.Equal(t, "Listed 3", res.Status)
	if diff := cmp.Diff([]string{"a.txt", "b.txt", "sub"}, res.Payload); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	res = r.Run(context.Background(), "list_files", map[string]any{"path": ".."})
	require.ErrorIs(t, res.Err, ErrPathEscapes)
}

func TestEditFile(t *testing.T) {
	r := newTestRunner(t, t.TempDir(), editor.NewState())
	res := r.Run(context.Background(), "edit_file", map[string]any{
		"path":         "main.go",
		"instructions": "rename foo to bar",
	})
	require.NoError(t, res.Err)
	require.Nil(t, res.Payload)
	require.Equal(t,
		"To edit the file 'main.go', follow these instructions:\nrename foo to bar\n\nNote: I cannot directly edit the file. You need to manually make these changes.",
		res.Status)
	require.Equal(t, map[string]any{"output": res.Status}, res.Response())

	res = r.Run(context.Background(), "edit_file", map[string]any{
		"path":         "/etc/hosts",
		"instructions": "x",
	})
	require.ErrorIs(t, res.Err, ErrPathEscapes)
}

func TestMissingArgument(t *testing.T) {
	r := newTestRunner(t, t.TempDir(), editor.NewState())
	res := r.Run(context.Background(), "read_file", map[string]any{})
	require.Error(t, res.Err)
	require.Contains(t, res.Status, `missing required parameter "path"`)

	res = r.Run(context.Background(), "read_file", map[string]any{"path": 42.0})
	require.Error(t, res.Err)
}
