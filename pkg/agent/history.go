package agent

import "github.com/jmuk/lagos/pkg/ai"

// History is the conversation of an agent. It only grows during normal
// operation; a failed turn is rolled back with Truncate.
type History struct {
	turns []ai.Turn
}

func (h *History) Append(t ai.Turn) {
	h.turns = append(h.turns, t)
}

func (h *History) Len() int {
	return len(h.turns)
}

// Truncate drops the turns after the first n.
func (h *History) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(h.turns) {
		clear(h.turns[n:])
		h.turns = h.turns[:n]
	}
}

func (h *History) Clear() {
	h.turns = nil
}

// Turns returns a copy of the turns.
func (h *History) Turns() []ai.Turn {
	return append([]ai.Turn(nil), h.turns...)
}
