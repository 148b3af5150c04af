package task

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

// Store owns the task sequence, newest first. Every mutation persists the
// full sequence before returning.
type Store struct {
	repo Repository
	bus  *eventbus.Bus

	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	tasks []Task
}

type StoreOption func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

func NewStore(repo Repository, bus *eventbus.Bus, opts ...StoreOption) *Store {
	s := &Store{
		repo:  repo,
		bus:   bus,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the sequence with the persisted one. Absent or malformed
// data yields an empty sequence and no error; other storage failures are
// returned, and the store is still usable with an empty sequence.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.repo.Load(ctx)
	s.tasks = nil

	switch {
	case err == nil:
		s.tasks = tasks
		slog.DebugContext(ctx, "loaded tasks", "count", len(tasks))
		return nil
	case cerr.IsCode(err, cerr.NotFound):
		return nil
	case cerr.IsCode(err, cerr.DataLoss):
		slog.WarnContext(ctx, "persisted tasks are malformed, starting empty", clog.ErrorAttributeKey, err)
		return nil
	default:
		return err
	}
}

// Reload re-reads storage after an external change. On failure the current
// sequence is kept. The read happens under s.mu so a mutation committed
// meanwhile is never replaced by an older payload.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	tasks, err := s.repo.Load(ctx)
	if err != nil && !cerr.IsCode(err, cerr.NotFound) {
		s.mu.Unlock()
		return err
	}
	if slices.Equal(s.tasks, tasks) {
		s.mu.Unlock()
		return nil
	}
	s.tasks = tasks
	s.mu.Unlock()

	slog.InfoContext(ctx, "reloaded tasks from storage", "count", len(tasks))
	s.bus.PublishNew(eventbus.EventTypeTasksReloaded, "")
	return nil
}

// Tasks returns a copy of the sequence, never nil.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task{}, s.tasks...)
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return Task{}, false
}

type AddInput struct {
	Title       string
	Description string
	Priority    Priority
}

// Add creates a task at the front of the sequence. A blank title is
// rejected with InvalidArgument and nothing changes. Title and description
// are stored as given.
func (s *Store) Add(ctx context.Context, in AddInput) (Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if !in.Priority.Valid() {
		return Task{}, cerr.NewError(cerr.InvalidArgument, "priority must be one of URGENT, HIGH, MEDIUM, LOW", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		CreatedAt:   s.now().UnixMilli(),
	}
	next := make([]Task, 0, len(s.tasks)+1)
	next = append(next, t)
	next = append(next, s.tasks...)
	if err := s.commit(ctx, next); err != nil {
		return Task{}, err
	}
	s.bus.PublishNew(eventbus.EventTypeTaskCreated, t.ID)
	return t, nil
}

// ToggleComplete flips Completed on the task with id. An unknown id is not
// an error: found is false and the unchanged sequence is persisted.
func (s *Store) ToggleComplete(ctx context.Context, id string) (t Task, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.tasks)
	i := s.indexOf(id)
	if i >= 0 {
		next[i].Completed = !next[i].Completed
		t, found = next[i], true
	}
	if err := s.commit(ctx, next); err != nil {
		return Task{}, false, err
	}
	if found {
		s.bus.PublishNew(eventbus.EventTypeTaskUpdated, id)
	}
	return t, found, nil
}

// Delete removes the task with id. An unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.tasks)
	if i := s.indexOf(id); i >= 0 {
		next = slices.Delete(next, i, i+1)
		found = true
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	if found {
		s.bus.PublishNew(eventbus.EventTypeTaskDeleted, id)
	}
	return found, nil
}

// commit persists next and adopts it. On failure the previous sequence
// stays so memory never runs ahead of storage. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []Task) error {
	if err := s.repo.Save(ctx, next); err != nil {
		slog.ErrorContext(ctx, "failed to persist tasks", clog.ErrorAttributeKey, err)
		return err
	}
	s.tasks = next
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}
