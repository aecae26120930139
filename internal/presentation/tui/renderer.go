package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders a fragment event as a colored trace.
// Use termenv.Ascii for plain text output. Text coming from fragments is sanitized.
func NewRenderer(p termenv.Profile) func(domain.FragmentEvent) (string, error) {
	r := renderer{p: p}
	return r.render
}

type renderer struct {
	p termenv.Profile
}

func (r renderer) render(event domain.FragmentEvent) (string, error) {
	var sb strings.Builder

	task := event.Task
	if task == "" {
		task = "-"
	}
	fmt.Fprintf(&sb, "%s %s %s %s\n",
		r.status(event.Status),
		r.p.String(Sanitize(event.Fragment.ID)).Bold(),
		task,
		r.faint(round(event.Duration)),
	)

	for _, entry := range event.Log {
		mark := r.p.String("✓").Foreground(r.p.Color("2"))
		switch entry.Status {
		case domain.NodeStatusError:
			mark = r.p.String("✗").Foreground(r.p.Color("1"))
		case domain.NodeStatusTimeout:
			mark = r.p.String("⏱").Foreground(r.p.Color("3"))
		}
		fmt.Fprintf(&sb, "  %s %-16s %-10s %s\n", mark, Sanitize(entry.Alias), entry.Transition, r.faint(round(entry.Duration)))
		if entry.Error != "" {
			fmt.Fprintf(&sb, "      %s\n", r.p.String(Sanitize(entry.Error)).Foreground(r.p.Color("1")))
		}
	}

	if event.Fragment.Body != "" {
		fmt.Fprintf(&sb, "  %s %s\n", r.faint("body:"), Sanitize(event.Fragment.Body))
	}
	if len(event.Fragment.Payload) > 0 {
		data, err := json.Marshal(event.Fragment.Payload)
		if err != nil {
			return "", fmt.Errorf("render payload: %w", err)
		}
		fmt.Fprintf(&sb, "  %s %s\n", r.faint("payload:"), data)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (r renderer) status(s domain.EventStatus) termenv.Style {
	style := r.p.String(string(s)).Bold()
	switch s {
	case domain.EventSuccess:
		return style.Foreground(r.p.Color("2"))
	case domain.EventFailure:
		return style.Foreground(r.p.Color("1"))
	default:
		return style.Foreground(r.p.Color("8"))
	}
}

func (r renderer) faint(s string) termenv.Style {
	return r.p.String(s).Faint()
}

func round(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}
