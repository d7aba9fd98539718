package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/scopeheap/heap"
	"github.com/wippyai/scopeheap/script"
)

type styles struct {
	title     lipgloss.Style
	scope     lipgloss.Style
	created   lipgloss.Style
	destroyed lipgloss.Style
	escaped   lipgloss.Style
	dim       lipgloss.Style
	err       lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		scope:     lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		created:   lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		destroyed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		escaped:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6")),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		err:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
}

func (st styles) event(t heap.EventType) lipgloss.Style {
	switch t {
	case heap.EventScopeOpened, heap.EventScopeClosed:
		return st.scope
	case heap.EventCreated, heap.EventAdopted:
		return st.created
	case heap.EventDestroyed:
		return st.destroyed
	case heap.EventEscaped:
		return st.escaped
	default:
		return st.dim
	}
}

// renderTrace formats one run: the event list, the destructor log, the
// final counters and the run error, if any.
func renderTrace(name string, res *script.Result, runErr error, st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render(name))
	b.WriteString("\n\n")

	for _, e := range res.Events {
		b.WriteString(formatEvent(e, st))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "destroyed: %s\n", strings.Join(res.Log, ", "))
	s := res.Stats
	b.WriteString(st.dim.Render(fmt.Sprintf(
		"created=%d destroyed=%d escaped=%d adopted=%d live=%d pending=%d",
		s.Created, s.Destroyed, s.Escaped, s.Adopted, s.Live, s.Pending)))
	b.WriteString("\n")
	footprint := fmt.Sprintf("in_use=%d blocks=%d", s.InUse, s.Blocks)
	if s.MemorySize > 0 {
		footprint += fmt.Sprintf(" memory=%d", s.MemorySize)
	}
	b.WriteString(st.dim.Render(footprint))
	b.WriteString("\n")

	if runErr != nil {
		b.WriteString(st.err.Render("error: " + runErr.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func formatEvent(e heap.Event, st styles) string {
	indent := strings.Repeat("  ", strings.Count(e.Scope, "/"))
	label := st.event(e.Type).Render(fmt.Sprintf("%-12s", e.Type))
	if e.GoType == "" {
		return indent + label + " " + e.Scope
	}
	return fmt.Sprintf("%s%s %s #%d %s count=%d", indent, label, e.Scope, e.CellID, e.GoType, e.Count)
}
