// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dbuild-io/dbuild/internal/core/plan"
)

const (
	barWidth     = 30
	postfixWidth = 40
)

var (
	styleModule  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleBar     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	stylePostfix = lipgloss.NewStyle().Faint(true)
)

// Renderer paints one progress line per module on a fixed interval. It only
// reads plan statuses; snapshots may lag a worker's writes by one tick,
// which is fine for display purposes.
type Renderer struct {
	arena    *plan.Arena
	modules  []string
	roots    map[string][]int
	out      io.Writer
	interval time.Duration

	nameWidth int
	frames    int
	stop      chan struct{}
	finished  chan struct{}
}

// NewRenderer creates a renderer for the given modules, in display order.
func NewRenderer(arena *plan.Arena, modules []string, roots map[string][]int, out io.Writer, interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = DefaultInterval
	}

	nameWidth := 0
	for _, m := range modules {
		if len(m) > nameWidth {
			nameWidth = len(m)
		}
	}

	return &Renderer{
		arena:     arena,
		modules:   modules,
		roots:     roots,
		out:       out,
		interval:  interval,
		nameWidth: nameWidth,
		stop:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
}

// Start begins rendering in a new goroutine.
func (r *Renderer) Start() {
	go func() {
		defer close(r.finished)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.render()
			case <-r.stop:
				r.render()
				return
			}
		}
	}()
}

// Stop renders a final frame and waits for the render goroutine to exit.
func (r *Renderer) Stop() {
	close(r.stop)
	<-r.finished
}

func (r *Renderer) render() {
	if len(r.modules) == 0 {
		return
	}

	// repaint in place from the second frame on
	if r.frames > 0 {
		fmt.Fprintf(r.out, "\x1b[%dA", len(r.modules))
	}
	r.frames++

	for _, module := range r.modules {
		fmt.Fprintf(r.out, "\x1b[2K%s\n", r.line(module))
	}
}

func (r *Renderer) line(module string) string {
	var current, total int64
	var active []*plan.Plan
	for _, root := range r.roots[module] {
		current += r.arena.CurrentProgress(root)
		total += r.arena.TotalProgress(root)
		active = append(active, r.arena.ActiveInTree(root)...)
	}

	var postfix string
	switch {
	case len(active) > 1:
		verbs := make([]string, len(active))
		for i, p := range active {
			verbs[i] = p.Verb
		}
		postfix = strings.Join(verbs, ", ")
	case len(active) == 1:
		postfix = active[0].Status.Description()
	case current < total:
		postfix = " ... waiting ..."
	default:
		postfix = "done!"
	}

	if len(postfix) > postfixWidth {
		postfix = postfix[:postfixWidth-3] + "..."
	}

	percent := 100.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}

	return fmt.Sprintf("%s %3.0f%% |%s| %d/%d %s",
		styleModule.Render(fmt.Sprintf("%-*s", r.nameWidth, module)),
		percent,
		styleBar.Render(bar(current, total)),
		current, total,
		stylePostfix.Render(fmt.Sprintf("%-*s", postfixWidth, postfix)))
}

func bar(current, total int64) string {
	filled := barWidth
	if total > 0 {
		filled = int(float64(current) / float64(total) * barWidth)
	}
	if filled > barWidth {
		filled = barWidth
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
