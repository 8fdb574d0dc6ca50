package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	return home
}

func TestNewAppMissingKey(t *testing.T) {
	setupHome(t)
	t.Setenv("GOOGLE_API_KEY", "")
	project := t.TempDir()

	_, _, err := newApp(t.Context(), &options{projectRoot: project}, "rpc")
	require.ErrorContains(t, err, "GOOGLE_API_KEY")

	// nothing is started before the key is checked.
	_, err = os.Stat(filepath.Join(os.Getenv("XDG_CACHE_HOME"), "lagos"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewAppKeyFromDotEnv(t *testing.T) {
	setupHome(t)
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".env"), []byte("GOOGLE_API_KEY=test-key\n"), 0644))

	a, ctx, err := newApp(t.Context(), &options{projectRoot: project}, "rpc")
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, ctx)
	require.Equal(t, project, a.projectRoot)

	var names []string
	for _, d := range a.runner.Defs() {
		names = append(names, d.Name())
	}
	require.Equal(t, []string{
		"read_file", "list_files", "edit_file",
		"get_buffer_content", "get_visual_selection", "apply_edit",
	}, names)
}

func TestNewAppUnknownModel(t *testing.T) {
	setupHome(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")
	_, _, err := newApp(t.Context(), &options{projectRoot: t.TempDir(), modelName: "nope"}, "chat")
	require.ErrorContains(t, err, `model config "nope" not found`)
}

func TestResolveProjectRoot(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveProjectRoot(dir)
	require.NoError(t, err)
	require.Equal(t, dir, got)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = resolveProjectRoot(file)
	require.ErrorContains(t, err, "not a directory")

	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err = resolveProjectRoot("")
	require.NoError(t, err)
	require.Equal(t, wd, got)
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"rpc", "chat"}, names)
	require.NotNil(t, cmd.PersistentFlags().Lookup("project-root"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("model"))
}
