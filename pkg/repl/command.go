package repl

import (
	"fmt"
	"strings"

	"github.com/jmuk/lagos/pkg/ai"
)

type command int

const (
	commandNone command = iota
	commandQuit
	commandClear
	commandHistory
	commandList
	commandTools
	commandUnknown
)

var knownCommands = []string{
	"quit",
	"clear",
	"history",
	"tools",
	"commands",
	"help",
}

func parseCommand(line string) (command, []string) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '/' {
		return commandNone, nil
	}
	words := strings.Fields(line[1:])
	if len(words) == 0 {
		return commandNone, nil
	}
	switch strings.ToLower(words[0]) {
	case "q", "quit", "exit":
		return commandQuit, words[1:]
	case "clear", "reset":
		return commandClear, words[1:]
	case "history":
		return commandHistory, words[1:]
	case "tools":
		return commandTools, words[1:]
	case "commands", "help", "?":
		return commandList, words[1:]
	default:
		return commandUnknown, words
	}
}

func (c *Console) handleListCommand() {
	fmt.Fprintln(c.out, `List of possible commands:
- help, commands, or ?: this command -- show the list of commands.
- clear: forget the conversation so far.
- history: show the conversation so far.
- tools: show the tools the assistant can use.
- q, quit: quit this program.

Type @ followed by a path to complete the files of the project.`)
}

func (c *Console) handleHistoryCommand() {
	turns := c.agent.History()
	if len(turns) == 0 {
		fmt.Fprintln(c.out, noticeStyle.Render("The conversation is empty."))
		return
	}
	for _, t := range turns {
		style := assistantStyle
		if t.Role == ai.RoleUser {
			style = userStyle
		}
		fmt.Fprintf(c.out, "%s %s\n", style.Render(string(t.Role)+":"), t.Text())
	}
}

func (c *Console) handleClearCommand() {
	if !c.confirm("Clear the conversation") {
		return
	}
	c.agent.ClearHistory()
	fmt.Fprintln(c.out, noticeStyle.Render("The conversation is cleared."))
}

func (c *Console) handleToolsCommand() {
	if c.runner == nil {
		fmt.Fprintln(c.out, noticeStyle.Render("No tool is available."))
		return
	}
	for _, d := range c.runner.Defs() {
		desc, _, _ := strings.Cut(d.Description(), "\n")
		fmt.Fprintf(c.out, "%s %s\n", toolCallStyle.Render(d.Name()), noticeStyle.Render(desc))
	}
}
