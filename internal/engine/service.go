package engine

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"taskquest/internal/storage"
)

// Notifier receives level-up and badge events after they are persisted.
// Deduplication of badge notices is the notifier's job.
type Notifier interface {
	LevelUp(ctx context.Context, level int)
	BadgesUnlocked(ctx context.Context, badges []Badge)
}

type Service struct {
	db          *sql.DB
	players     *storage.PlayerRepo
	tasks       *storage.TaskRepo
	completions *storage.CompletionRepo
	badges      *storage.BadgeRepo

	now       func() time.Time
	loc       *time.Location
	notifier  Notifier
	evaluator *BadgeEvaluator

	// mu guards the session state below. Scoring and badge evaluation are
	// applied one completion at a time.
	mu       sync.Mutex
	scoring  *ScoringEngine
	unlocked BadgeSet
}

type Option func(*Service)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used to bucket completions into days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService loads the stored session (XP total, unlocked badges) from db.
func NewService(ctx context.Context, db *sql.DB, opts ...Option) (*Service, error) {
	s := &Service{
		db:          db,
		players:     storage.NewPlayerRepo(db),
		tasks:       storage.NewTaskRepo(db),
		completions: storage.NewCompletionRepo(db),
		badges:      storage.NewBadgeRepo(db),
		now:         time.Now,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.evaluator = NewBadgeEvaluator(s.loc)

	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) PlayerRepo() *storage.PlayerRepo         { return s.players }
func (s *Service) TaskRepo() *storage.TaskRepo             { return s.tasks }
func (s *Service) CompletionRepo() *storage.CompletionRepo { return s.completions }
func (s *Service) BadgeRepo() *storage.BadgeRepo           { return s.badges }

// Location is the zone days are counted in.
func (s *Service) Location() *time.Location { return s.loc }

// Now is the service clock in its location.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

func (s *Service) reload(ctx context.Context) error {
	p, err := s.getPlayer(ctx)
	if err != nil {
		return err
	}
	records, err := s.badges.ListUnlocked(ctx)
	if err != nil {
		return err
	}
	unlocked := NewBadgeSet()
	for _, r := range records {
		unlocked[BadgeID(r.ID)] = struct{}{}
	}

	s.mu.Lock()
	s.scoring = NewScoringEngine(p.XPTotal, s.Now)
	s.unlocked = unlocked
	s.mu.Unlock()
	return nil
}

func normalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", ValidationError{Field: "name", Reason: "name is required"}
	}
	return n, nil
}

func (s *Service) getPlayer(ctx context.Context) (*storage.Player, error) {
	p, err := s.players.GetOrCreateMain(ctx)
	if err != nil {
		return nil, err
	}
	computed := LevelForTotalXP(p.XPTotal)
	if p.Level != computed {
		p.Level = computed
		if err := s.players.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
