package repl

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// completer completes a word of the line which starts with a trigger char.
type completer interface {
	// triggerChar returns the position of the trigger char of the word at
	// pos, or -1.
	triggerChar(line []rune, pos int) int
	complete(prefix string) []string
}

// commandCompleter completes /commands at the beginning of the line.
type commandCompleter struct{}

func (cc *commandCompleter) triggerChar(line []rune, pos int) int {
	i := 0
	for ; i < pos; i++ {
		if line[i] == '/' {
			break
		}
		if !unicode.IsSpace(line[i]) {
			return -1
		}
	}
	if i >= pos {
		return -1
	}
	for j := i + 1; j < pos; j++ {
		if !unicode.IsGraphic(line[j]) || unicode.IsSpace(line[j]) {
			return -1
		}
	}
	return i
}

func (cc *commandCompleter) complete(prefix string) []string {
	prefix = strings.TrimPrefix(prefix, "/")
	results := make([]string, 0, len(knownCommands))
	for _, cmd := range knownCommands {
		if strings.HasPrefix(cmd, prefix) {
			results = append(results, cmd[len(prefix):])
		}
	}
	return results
}

// fileCompleter completes @paths relative to the project root.
type fileCompleter struct {
	root *os.Root
}

func (fc *fileCompleter) triggerChar(line []rune, pos int) int {
	for i := pos - 1; i >= 0; i-- {
		r := line[i]
		escaped := i > 0 && line[i-1] == '\\'
		switch {
		case r == '@' && !escaped:
			return i
		case unicode.IsSpace(r) && !escaped:
			return -1
		case !unicode.IsGraphic(r):
			return -1
		}
	}
	return -1
}

func (fc *fileCompleter) complete(prefix string) []string {
	dir, file := filepath.Split(strings.TrimPrefix(prefix, "@"))
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		dir = "."
	}
	ents, err := fs.ReadDir(fc.root.FS(), dir)
	if err != nil {
		return nil
	}
	var results []string
	for _, ent := range ents {
		name := ent.Name()
		if !strings.HasPrefix(name, file) {
			continue
		}
		// hidden files only when asked for.
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(file, ".") {
			continue
		}
		suffix := name[len(file):]
		if ent.IsDir() {
			suffix += "/"
		}
		results = append(results, suffix)
	}
	return results
}

// combinedCompleter implements readline.AutoCompleter with the first
// completer triggered at the cursor.
type combinedCompleter struct {
	comps []completer
}

func (c *combinedCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	for _, cc := range c.comps {
		start := cc.triggerChar(line, pos)
		if start < 0 || start > pos {
			continue
		}
		length = pos - start
		for _, result := range cc.complete(string(line[start:pos])) {
			newLine = append(newLine, []rune(result))
		}
		return newLine, length
	}
	return nil, 0
}

func newCombinedCompleter(root *os.Root) *combinedCompleter {
	comps := []completer{&commandCompleter{}}
	if root != nil {
		comps = append(comps, &fileCompleter{root: root})
	}
	return &combinedCompleter{comps: comps}
}
