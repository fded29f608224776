package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"taskquest/internal/engine"
	"taskquest/internal/model"
	"taskquest/internal/projectsync"
)

// RunBoard opens the dashboard. changes delivers projects the poll loops
// replaced; it may be nil. Polling is stopped when the board exits.
func RunBoard(ctx context.Context, svc *engine.Service, mgr *projectsync.Manager, changes <-chan model.Project, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if mgr != nil {
		defer mgr.Close()
	}

	m := newBoardModel(ctx, svc, mgr, changes)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
