// Package notify prints level-up and badge notices. Each badge is announced
// at most once ever; the announced set lives in the local database.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"taskquest/internal/engine"
	"taskquest/internal/ui"
)

// Ledger records which badges were already announced.
// storage.BadgeRepo satisfies it.
type Ledger interface {
	IsNotified(ctx context.Context, id string) (bool, error)
	MarkNotified(ctx context.Context, id string) error
}

type Notifier struct {
	out    io.Writer
	ledger Ledger
	logger *log.Logger

	mu sync.Mutex
}

func New(out io.Writer, ledger Ledger, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{out: out, ledger: ledger, logger: logger}
}

func (n *Notifier) LevelUp(_ context.Context, level int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "%s %s %s\n", ui.IconBolt, ui.LevelUpTag, ui.Gold.Render(fmt.Sprintf("You reached level %d!", level)))
}

// BadgesUnlocked announces each badge that was never announced before.
// A ledger failure is logged and the badge is shown anyway.
func (n *Notifier) BadgesUnlocked(ctx context.Context, badges []engine.Badge) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, b := range badges {
		id := string(b.ID)
		seen, err := n.ledger.IsNotified(ctx, id)
		if err != nil {
			n.logger.Printf("notify: check %s: %v", id, err)
		}
		if seen {
			continue
		}
		fmt.Fprintf(n.out, "%s %s %s %s\n", ui.IconTrophy, ui.BadgeTag, ui.Gold.Render(b.Icon+" "+b.Name), ui.Muted.Render(b.Description))
		if err := n.ledger.MarkNotified(ctx, id); err != nil {
			n.logger.Printf("notify: mark %s: %v", id, err)
		}
	}
}
