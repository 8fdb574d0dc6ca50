package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmuk/lagos/pkg/agent"
	"github.com/jmuk/lagos/pkg/config"
	"github.com/jmuk/lagos/pkg/editor"
	"github.com/jmuk/lagos/pkg/session"
	"github.com/jmuk/lagos/pkg/tools"
	"github.com/spf13/cobra"
)

type options struct {
	projectRoot string
	configFile  string
	modelName   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "lagos",
		Short: "A coding assistant for your editor",
		Long: `lagos is a coding assistant on top of Gemini. It reads the files of
the project and the buffers of the editor to answer questions about the code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.projectRoot, "project-root", "", "the project directory the tools are confined to (default: the working directory)")
	flags.StringVar(&opts.configFile, "config", "", "the config file (default: lagos/config.toml in the user config directory)")
	flags.StringVar(&opts.modelName, "model", "", "the name of the model config to use")

	rootCmd.AddCommand(newRPCCmd(opts), newChatCmd(opts))
	return rootCmd
}

// app holds everything a front-end needs, built once at startup.
type app struct {
	session     *session.Session
	managers    []tools.Manager
	runner      *tools.ToolRunner
	agent       *agent.Agent
	projectRoot string
}

type keyResolver interface {
	ResolveAPIKey() (string, error)
}

func resolveProjectRoot(p string) (string, error) {
	if p == "" {
		var err error
		if p, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !st.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// newApp loads the configuration and builds the agent. It fails before
// starting anything when the credentials are missing.
func newApp(ctx context.Context, opts *options, command string) (_ *app, _ context.Context, err error) {
	projectRoot, err := resolveProjectRoot(opts.projectRoot)
	if err != nil {
		return nil, ctx, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, ctx, err
	}
	if err := config.LoadEnv(projectRoot, cwd); err != nil {
		return nil, ctx, err
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, ctx, err
	}
	if opts.modelName != "" {
		cfg.ModelName = opts.modelName
	}
	mc, err := cfg.ModelConfig()
	if err != nil {
		return nil, ctx, err
	}
	if kr, ok := mc.(keyResolver); ok {
		if _, err := kr.ResolveAPIKey(); err != nil {
			return nil, ctx, err
		}
	}

	s, err := session.New(projectRoot, command, cfg.LogLevel)
	if err != nil {
		return nil, ctx, err
	}
	a := &app{session: s, projectRoot: projectRoot}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
		}
	}()
	ctx = s.With(ctx)

	state := editor.NewState()
	a.managers, err = tools.NewManagers(projectRoot, state, cfg.MCP)
	if err != nil {
		return nil, ctx, err
	}
	toolsLogger, err := s.GetLogger("tools")
	if err != nil {
		return nil, ctx, err
	}
	defs, err := tools.CollectToolDefs(ctx, toolsLogger, a.managers)
	if err != nil {
		return nil, ctx, err
	}
	a.runner, err = tools.NewToolRunner(toolsLogger, defs)
	if err != nil {
		return nil, ctx, err
	}

	systemPrompt, err := agent.SystemPrompt(projectRoot, cfg.InstructionsFile)
	if err != nil {
		return nil, ctx, err
	}
	modelOpts := cfg.ModelOptions()
	modelOpts.SystemPrompt = systemPrompt
	modelOpts.Tools = defs
	model, err := mc.NewModel(ctx, modelOpts)
	if err != nil {
		return nil, ctx, err
	}

	agentLogger, err := s.GetLogger("agent")
	if err != nil {
		return nil, ctx, err
	}
	a.agent = agent.New(agentLogger, model, a.runner, state, cfg.MaxToolRounds)
	agentLogger.Info("Started", "command", command, "model", cfg.ModelName, "project_root", projectRoot, "tools", len(defs))
	return a, ctx, nil
}

func (a *app) Close() error {
	return errors.Join(tools.CloseAll(a.managers), a.session.Close())
}
