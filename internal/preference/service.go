package preference

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

// Service reads and writes user preferences.
type Service struct {
	repo         Repository
	bus          *eventbus.Bus
	defaultTheme Theme

	mu sync.Mutex
}

func NewService(repo Repository, bus *eventbus.Bus, defaultTheme Theme) *Service {
	if !defaultTheme.Valid() {
		defaultTheme = ThemeLight
	}
	return &Service{repo: repo, bus: bus, defaultTheme: defaultTheme}
}

// Theme returns the stored theme, or the default when nothing valid is
// stored.
func (s *Service) Theme(ctx context.Context) Theme {
	t, err := s.repo.GetTheme(ctx)
	if err != nil {
		if !cerr.IsCode(err, cerr.NotFound) {
			slog.WarnContext(ctx, "failed to read theme, using default", clog.ErrorAttributeKey, err)
		}
		return s.defaultTheme
	}
	return t
}

func (s *Service) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "theme must be light or dark", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, t)
}

func (s *Service) ToggleTheme(ctx context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.Theme(ctx).Toggle()
	if err := s.set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Service) set(ctx context.Context, t Theme) error {
	if err := s.repo.SetTheme(ctx, t); err != nil {
		return err
	}
	s.bus.PublishNew(eventbus.EventTypeThemeChanged, string(t))
	return nil
}
