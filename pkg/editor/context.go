// Package editor holds the editor-side context (current buffer and selected
// text) that the editor host pushes before a chat request.
package editor

import (
	"fmt"
)

// Buffer describes an editor buffer.
type Buffer struct {
	Name     string `json:"name"`
	Number   int    `json:"bufnr,omitempty"`
	Content  string `json:"content,omitempty"`
	Filetype string `json:"filetype,omitempty"`
}

// Context is the editor state attached to a single chat message.
type Context struct {
	Buffer    *Buffer
	Selection string
}

// IsZero reports whether the context carries nothing.
func (c Context) IsZero() bool {
	return c.Buffer == nil && c.Selection == ""
}

// Decorate prefixes the message with the buffer name and the selection.
// The selection ends up outermost.
func (c Context) Decorate(message string) string {
	if c.Buffer != nil && c.Buffer.Name != "" {
		message = fmt.Sprintf("[Current buffer: %s]\n%s", c.Buffer.Name, message)
	}
	if c.Selection != "" {
		message = fmt.Sprintf("[Selected text:\n%s\n]\n%s", c.Selection, message)
	}
	return message
}

// State keeps the context pushed by the editor until a chat turn takes it.
// The taken context stays visible as the active one for the duration of
// that turn, so that tools can look at the buffer.
type State struct {
	pending Context
	active  Context
}

func NewState() *State {
	return &State{}
}

// Set replaces the pending context.
func (s *State) Set(c Context) {
	s.pending = c
}

// Take returns the pending context, makes it the active one and clears it.
func (s *State) Take() Context {
	c := s.pending
	s.pending = Context{}
	s.active = c
	return c
}

// Restore puts back a context taken by a turn that failed. A context set
// since then is kept instead.
func (s *State) Restore(c Context) {
	if s.pending.IsZero() {
		s.pending = c
	}
	s.active = Context{}
}

// Active returns the context of the turn in progress.
func (s *State) Active() Context {
	return s.active
}

// Pending returns the context waiting for the next turn.
func (s *State) Pending() Context {
	return s.pending
}
