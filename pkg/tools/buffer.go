package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/andreyvit/diff"
	"github.com/jmuk/lagos/pkg/editor"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// EditorTools expose the editor context of the current turn to the model.
type EditorTools struct {
	state *editor.State
}

func NewEditorTools(state *editor.State) *EditorTools {
	return &EditorTools{state: state}
}

func (et *EditorTools) Close() error {
	return nil
}

type bufferRequest struct {
	Number int `json:"bufnr"`
}

type bufferResponse struct {
	Name     string `json:"name"`
	Number   int    `json:"bufnr"`
	Filetype string `json:"filetype,omitempty"`
	Content  string `json:"content"`
}

// currentBuffer returns the buffer of the turn if it is the one numbered n.
// 0 stands for the current buffer.
func (et *EditorTools) currentBuffer(n int) (*editor.Buffer, error) {
	buf := et.state.Active().Buffer
	if buf == nil {
		return nil, &ToolError{errors.New("the editor did not share any buffer")}
	}
	if n != 0 && buf.Number != n {
		return nil, &ToolError{fmt.Errorf("buffer %d is not available; the current buffer is %d", n, buf.Number)}
	}
	return buf, nil
}

func (et *EditorTools) getBufferContent(ctx context.Context, req bufferRequest) (Result, error) {
	buf, err := et.currentBuffer(req.Number)
	if err != nil {
		getLogger(ctx).Warn("Buffer is not available", "bufnr", req.Number, "error", err)
		return Result{}, err
	}
	if buf.Content == "" {
		return Result{}, &ToolError{fmt.Errorf("the editor did not share the content of buffer %d", buf.Number)}
	}
	return Structured(
		fmt.Sprintf("Read buffer %d (%d lines)", buf.Number, countLines(buf.Content)),
		bufferResponse{
			Name:     buf.Name,
			Number:   buf.Number,
			Filetype: buf.Filetype,
			Content:  buf.Content,
		},
	), nil
}

type selectionRequest struct{}

type selectionResponse struct {
	Text string `json:"text"`
}

func (et *EditorTools) getVisualSelection(ctx context.Context, req selectionRequest) (Result, error) {
	sel := et.state.Active().Selection
	if sel == "" {
		return Structured("No text is selected", selectionResponse{}), nil
	}
	return Structured(
		fmt.Sprintf("Read %d selected lines", countLines(sel)),
		selectionResponse{Text: sel},
	), nil
}

type editOp struct {
	Type      string `json:"type"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	Line      int    `json:"line,omitempty"`
	Text      string `json:"text,omitempty"`
}

type applyEditRequest struct {
	Number int      `json:"bufnr"`
	Edits  []editOp `json:"edits"`
}

func (e editOp) instruction() (string, bool) {
	switch e.Type {
	case "replace":
		return fmt.Sprintf("Replace lines %d-%d: %s", e.StartLine, e.EndLine, e.Text), true
	case "insert":
		return fmt.Sprintf("Insert at line %d: %s", e.Line, e.Text), true
	case "delete":
		return fmt.Sprintf("Delete lines %d-%d", e.StartLine, e.EndLine), true
	}
	return "", false
}

func (e editOp) position() int {
	if e.Type == "insert" {
		return e.Line
	}
	return e.StartLine
}

// overlaps reports whether e and o touch the same original lines. An
// insert only conflicts with a range it would land inside of.
func (e editOp) overlaps(o editOp) bool {
	switch {
	case e.Type == "insert" && o.Type == "insert":
		return false
	case e.Type == "insert":
		return o.StartLine < e.Line && e.Line <= o.EndLine
	case o.Type == "insert":
		return o.overlaps(e)
	}
	return e.StartLine <= o.EndLine && o.StartLine <= e.EndLine
}

func (e editOp) validate(numLines int) error {
	if e.Type == "insert" {
		if e.Line < 1 || e.Line > numLines+1 {
			return fmt.Errorf("line %d is out of range", e.Line)
		}
		return nil
	}
	if e.StartLine < 1 || e.EndLine < e.StartLine || e.EndLine > numLines {
		return fmt.Errorf("lines %d-%d are out of range", e.StartLine, e.EndLine)
	}
	return nil
}

// applyEdits applies the edits on content. Line numbers are 1-based and
// refer to the original content. An insert at the first line of a replaced
// or deleted range goes before the new text, and inserts at the same line
// keep their order.
func applyEdits(content string, edits []editOp) (string, error) {
	lines := strings.Split(content, "\n")
	var valid []editOp
	for _, e := range edits {
		if _, ok := e.instruction(); !ok {
			continue
		}
		if err := e.validate(len(lines)); err != nil {
			return "", err
		}
		for _, prev := range valid {
			if e.overlaps(prev) {
				return "", fmt.Errorf("edit %q at line %d overlaps with %q at line %d", e.Type, e.position(), prev.Type, prev.position())
			}
		}
		valid = append(valid, e)
	}
	order := make([]int, len(valid))
	for i := range order {
		order[i] = i
	}
	// apply from the last so that the earlier line numbers stay valid.
	sort.Slice(order, func(i, j int) bool {
		a, b := valid[order[i]], valid[order[j]]
		if a.position() != b.position() {
			return a.position() > b.position()
		}
		if (a.Type == "insert") != (b.Type == "insert") {
			return b.Type == "insert"
		}
		return order[i] > order[j]
	})
	for _, i := range order {
		e := valid[i]
		if e.Type == "insert" {
			inserted := strings.Split(e.Text, "\n")
			lines = append(lines[:e.Line-1], append(inserted, lines[e.Line-1:]...)...)
			continue
		}
		var replaced []string
		if e.Type == "replace" {
			replaced = strings.Split(e.Text, "\n")
		}
		lines = append(lines[:e.StartLine-1], append(replaced, lines[e.EndLine:]...)...)
	}
	return strings.Join(lines, "\n"), nil
}

// changedLines counts the inserted and deleted lines between a and b.
func changedLines(a, b string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if d.Text != "" && !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += n
		case diffmatchpatch.DiffDelete:
			deleted += n
		}
	}
	return inserted, deleted
}

func (et *EditorTools) preview(n int, edits []editOp) string {
	buf, err := et.currentBuffer(n)
	if err != nil || buf.Content == "" {
		return ""
	}
	updated, err := applyEdits(buf.Content, edits)
	if err != nil {
		return fmt.Sprintf("\n\nPreview unavailable: %v", err)
	}
	inserted, deleted := changedLines(buf.Content, updated)
	return fmt.Sprintf("\n\nPreview (+%d -%d lines):\n%s", inserted, deleted, diff.LineDiff(buf.Content, updated))
}

func (et *EditorTools) applyEdit(ctx context.Context, req applyEditRequest) (Result, error) {
	var instructions []string
	for _, e := range req.Edits {
		if inst, ok := e.instruction(); ok {
			instructions = append(instructions, inst)
		}
	}
	getLogger(ctx).Debug("Prepared edits", "bufnr", req.Number, "count", len(instructions))
	return Text("Edit operations to apply:\n" + strings.Join(instructions, "\n") + et.preview(req.Number, req.Edits)), nil
}

func (et *EditorTools) ToolDefs(ctx context.Context) ([]ToolDefinition, error) {
	editParam := Param{
		Type:        TypeObject,
		Description: "An edit operation with line ranges and text.",
		Properties: []Param{
			{Name: "type", Type: TypeString, Required: true, Enum: []any{"replace", "insert", "delete"}, Description: "The kind of the edit."},
			{Name: "start_line", Type: TypeInteger, Description: "The first line (1-based) to replace or delete."},
			{Name: "end_line", Type: TypeInteger, Description: "The last line (inclusive) to replace or delete."},
			{Name: "line", Type: TypeInteger, Description: "The line to insert the text at."},
			{Name: "text", Type: TypeString, Description: "The new text for replace and insert."},
		},
	}
	return []ToolDefinition{
		newToolDefinition(
			"get_buffer_content",
			"Get the content of a NeoVim buffer.",
			[]Param{
				{Name: "bufnr", Type: TypeInteger, Required: true, Description: "Buffer number"},
			},
			et.getBufferContent,
		),
		newToolDefinition(
			"get_visual_selection",
			"Get the visually selected text in NeoVim.",
			nil,
			et.getVisualSelection,
		),
		newToolDefinition(
			"apply_edit",
			"Apply edits to a NeoVim buffer.",
			[]Param{
				{Name: "bufnr", Type: TypeInteger, Required: true, Description: "Buffer number to edit"},
				{Name: "edits", Type: TypeArray, Required: true, Items: &editParam, Description: "List of edit operations with line ranges and text"},
			},
			et.applyEdit,
		),
	}, nil
}
