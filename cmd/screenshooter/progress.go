package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

const progressBarWidth = 30

// terminalProgress renders job progress. On a terminal it redraws one line
// in place; otherwise it prints one line per mode.
type terminalProgress struct {
	out         io.Writer
	interactive bool
}

func newTerminalProgress(out *os.File) *terminalProgress {
	return &terminalProgress{
		out:         out,
		interactive: term.IsTerminal(int(out.Fd())),
	}
}

func (p *terminalProgress) OnProgress(current, total int) {
	if !p.interactive {
		fmt.Fprintf(p.out, "[%d/%d]\n", current, total)
		return
	}
	fmt.Fprintf(p.out, "\r%s %d/%d", progressBar(current, total, progressBarWidth), current, total)
}

func (p *terminalProgress) OnFinished()  { p.endLine() }
func (p *terminalProgress) OnCancelled() { p.endLine(); fmt.Fprintln(p.out, "Stopped.") }

func (p *terminalProgress) OnFailed(err error) {
	p.endLine()
	fmt.Fprintf(p.out, "Failed: %v\n", err)
}

func (p *terminalProgress) endLine() {
	if p.interactive {
		fmt.Fprintln(p.out)
	}
}

func progressBar(current, total, width int) string {
	filled := width
	if total > 0 {
		filled = current * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

var _ domain.ProgressSink = (*terminalProgress)(nil)
