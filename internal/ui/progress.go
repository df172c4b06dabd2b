package ui

import (
	"fmt"
	"io"
)

// Progress reports completion of a fixed number of sequential steps.
type Progress struct {
	out   io.Writer
	total int
	done  int
}

// NewProgress creates a progress reporter for n steps.
func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{out: out, total: total}
}

// Done marks one step as completed and prints the running count.
func (p *Progress) Done(label string) {
	p.done++
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s\n", p.done, p.total, label)
}

// Log prints an informational message within the progress context.
func (p *Progress) Log(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}
