// Package repl is the interactive terminal front-end of the agent.
package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jmuk/lagos/pkg/agent"
	"github.com/jmuk/lagos/pkg/tools"
	"github.com/manifoldco/promptui"
)

type Console struct {
	agent   *agent.Agent
	runner  *tools.ToolRunner
	root    *os.Root
	out     io.Writer
	confirm func(label string) bool
	logger  *slog.Logger
}

func promptConfirm(label string) bool {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := p.Run()
	return err == nil
}

// New creates a console over the agent. Tool calls made through runner are
// shown as they happen.
func New(logger *slog.Logger, a *agent.Agent, runner *tools.ToolRunner, projectRoot string) (*Console, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	root, err := os.OpenRoot(projectRoot)
	if err != nil {
		return nil, err
	}
	c := &Console{
		agent:   a,
		runner:  runner,
		root:    root,
		out:     os.Stdout,
		confirm: promptConfirm,
		logger:  logger,
	}
	if runner != nil {
		runner.SetObserver(c.observe)
	}
	return c, nil
}

func (c *Console) Close() error {
	return c.root.Close()
}

func formatArgs(args map[string]any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	s := string(encoded)
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

func (c *Console) observe(name string, args map[string]any, res tools.Result) {
	style := toolCallStyle
	if res.Err != nil {
		style = toolFailureStyle
	}
	status := res.Status
	if i := strings.IndexByte(status, '\n'); i >= 0 {
		status = status[:i] + " ..."
	}
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf("* %s %s: %s", name, formatArgs(args), status)))
}

func (c *Console) sendMessage(ctx context.Context, line string) {
	reply, err := c.agent.Chat(ctx, line)
	if err != nil {
		c.logger.Error("Chat failed", "error", err)
		fmt.Fprintln(c.out, errorStyle.Render("Error: "+err.Error()))
		return
	}
	style := assistantStyle
	if reply.Empty {
		style = noticeStyle
	}
	fmt.Fprintln(c.out, style.Render(reply.Text))
}

// handleLine processes a line of input and reports whether to quit.
func (c *Console) handleLine(ctx context.Context, line string) bool {
	cmd, args := parseCommand(line)
	switch cmd {
	case commandQuit:
		return true
	case commandClear:
		c.handleClearCommand()
	case commandHistory:
		c.handleHistoryCommand()
	case commandList:
		c.handleListCommand()
	case commandTools:
		c.handleToolsCommand()
	case commandUnknown:
		fmt.Fprintf(c.out, "Unknown command %s, ignoring...\n", args[0])
	default:
		if strings.TrimSpace(line) == "" {
			return false
		}
		c.sendMessage(ctx, line)
	}
	return false
}

// Run reads lines from the terminal until the user quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptStyle.Render("> "),
		AutoComplete:    newCombinedCompleter(c.root),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(c.out, noticeStyle.Render("Type /help for the commands, /quit to leave."))
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.handleLine(ctx, line) {
			return nil
		}
	}
	return nil
}
