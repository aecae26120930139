// Package cli holds the glue shared by the taskgraph commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/taskgraph/internal/logging"
	"github.com/aretw0/taskgraph/internal/presentation/tui"
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewLogger builds the command logger. Logs always go to Stderr.
func NewLogger(level string, asJSON bool) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, lvl, asJSON), nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "task", e.Task, "node_id", e.NodeID, "alias", e.Alias, "kind", e.Kind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.TraceEntry) {
			logger.Debug("Leave Node", "node_id", e.NodeID, "status", e.Status, "transition", e.Transition, "duration", e.Duration)
		},
		OnWalkDone: func(ctx context.Context, e *domain.FragmentEvent) {
			logger.Debug("Walk Done", "fragment", e.Fragment.ID, "status", e.Status, "duration", e.Duration)
		},
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Profile picks the color profile for w. Non-terminals get plain text.
func Profile(w io.Writer) termenv.Profile {
	if !IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).ColorProfile()
}

// Renderer returns a human-readable renderer for terminals, or nil to
// keep JSON lines.
func Renderer(w io.Writer, forceJSON bool) func(domain.FragmentEvent) (string, error) {
	if forceJSON || !IsTerminal(w) {
		return nil
	}
	return tui.NewRenderer(Profile(w))
}
