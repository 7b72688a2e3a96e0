package engine

import "fmt"

// trace accumulates the ordered, human-readable decision path for one asset.
type trace struct {
	steps []string
}

func (t *trace) addf(format string, args ...any) {
	t.steps = append(t.steps, fmt.Sprintf(format, args...))
}

func (t *trace) add(lines ...string) {
	t.steps = append(t.steps, lines...)
}
