package agent

import (
	"fmt"
	"os"
	"path/filepath"
)

// systemPrompt is the basic system prompt of the coding assistant.
const systemPrompt = `
You are a seasoned software engineer working as a coding assistant inside the
user's editor.  Answer what the user asked as precisely as possible.

You can look at the project with the read_file and list_files tools, and at
the editor with the get_buffer_content and get_visual_selection tools.  Read
the code before you answer questions about it.

You cannot change files directly.  When a change is needed, describe it with
edit_file, or with apply_edit for the buffer the user is working on, and show
the resulting code in your answer.

Keep the answers short.  Use fenced code blocks with the language name for
code.
`

// SystemPrompt returns the system prompt for the project. The first
// non-empty file of customFile, AGENTS.md and GEMINI.md in the project root
// is appended to the built-in prompt.
func SystemPrompt(projectRoot string, customFile string) (string, error) {
	customInstruction := ""
	for _, agentsFile := range []string{customFile, "AGENTS.md", "GEMINI.md"} {
		if agentsFile == "" {
			continue
		}
		p := agentsFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(projectRoot, p)
		}
		content, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if len(content) > 0 {
			customInstruction = string(content)
			break
		}
	}

	if customInstruction == "" {
		return systemPrompt, nil
	}
	return fmt.Sprintf("%s\n\nAlso please check the following instructions:\n%s", systemPrompt, customInstruction), nil
}
