package browser

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/myles/perch/internal/feed"
)

// Run starts the interactive browser over an open synchronizer and blocks
// until the user quits. A background poller surfaces new posts in the
// status bar; a poll attempt that fails is restarted after the next
// interval so a transient outage does not silence the rest of the session.
func Run(syn *feed.Synchronizer, pollInterval time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(NewModel(syn), tea.WithAltScreen())

	poller := feed.NewPoller(syn, pollInterval, func(u feed.Update) {
		p.Send(pollUpdateMsg(u))
	})
	go func() {
		for {
			if err := poller.Run(ctx); ctx.Err() != nil || err == nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}
