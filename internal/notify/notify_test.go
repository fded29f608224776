package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskquest/internal/engine"
)

type memLedger struct {
	seen    map[string]bool
	failGet bool
}

func (l *memLedger) IsNotified(_ context.Context, id string) (bool, error) {
	if l.failGet {
		return false, errors.New("db locked")
	}
	return l.seen[id], nil
}

func (l *memLedger) MarkNotified(_ context.Context, id string) error {
	l.seen[id] = true
	return nil
}

func badge(t *testing.T, id engine.BadgeID) engine.Badge {
	t.Helper()
	b, ok := engine.LookupBadge(id)
	if !ok {
		t.Fatalf("badge %s not in catalog", id)
	}
	return b
}

func TestBadgeAnnouncedOnce(t *testing.T) {
	var out bytes.Buffer
	ledger := &memLedger{seen: map[string]bool{}}
	n := New(&out, ledger, log.New(io.Discard, "", 0))
	ctx := context.Background()

	first := badge(t, "first_task")
	n.BadgesUnlocked(ctx, []engine.Badge{first})
	n.BadgesUnlocked(ctx, []engine.Badge{first})

	assert.Equal(t, 1, strings.Count(out.String(), first.Name))
	assert.True(t, ledger.seen["first_task"])
}

func TestPreviouslyNotifiedBadgeSkipped(t *testing.T) {
	var out bytes.Buffer
	ledger := &memLedger{seen: map[string]bool{"streak_3": true}}
	n := New(&out, ledger, log.New(io.Discard, "", 0))

	n.BadgesUnlocked(context.Background(), []engine.Badge{badge(t, "streak_3"), badge(t, "tasks_10")})

	assert.NotContains(t, out.String(), "On Fire")
	assert.Contains(t, out.String(), "Productive")
}

func TestLedgerErrorStillAnnounces(t *testing.T) {
	var out bytes.Buffer
	var logs bytes.Buffer
	ledger := &memLedger{seen: map[string]bool{}, failGet: true}
	n := New(&out, ledger, log.New(&logs, "", 0))

	n.BadgesUnlocked(context.Background(), []engine.Badge{badge(t, "night_owl")})

	assert.Contains(t, out.String(), "Night Owl")
	assert.Contains(t, logs.String(), "db locked")
}

func TestLevelUpAlwaysPrinted(t *testing.T) {
	var out bytes.Buffer
	n := New(&out, &memLedger{seen: map[string]bool{}}, nil)

	n.LevelUp(context.Background(), 3)
	n.LevelUp(context.Background(), 3)

	assert.Equal(t, 2, strings.Count(out.String(), "level 3"))
}
