package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
	"github.com/kazz187/sprintly/pkg/panicerr"
)

// Suggester is the part of Gateway the Assistant needs.
type Suggester interface {
	SuggestNext(ctx context.Context, tasks []task.Task) ([]Suggestion, error)
}

// State is the transient suggestion view.
type State struct {
	Pending     bool         `json:"pending"`
	Suggestions []Suggestion `json:"suggestions"`
	LastError   string       `json:"lastError,omitempty"`
	RequestedAt *time.Time   `json:"requestedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Assistant runs suggestion requests in the background and holds their
// results until each is accepted or discarded. Only one request may be in
// flight; Request fails with Aborted while one is pending.
type Assistant struct {
	ctx       context.Context
	suggester Suggester
	store     *task.Store
	bus       *eventbus.Bus

	wg conc.WaitGroup

	mu    sync.Mutex
	state State
	// batch changes whenever Suggestions is replaced wholesale.
	batch int
	done  chan struct{}
}

// NewAssistant returns an Assistant whose background requests run under
// ctx; cancelling ctx cancels a pending request.
func NewAssistant(ctx context.Context, suggester Suggester, store *task.Store, bus *eventbus.Bus) *Assistant {
	return &Assistant{
		ctx:       ctx,
		suggester: suggester,
		store:     store,
		bus:       bus,
		state:     State{Suggestions: []Suggestion{}},
	}
}

func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

func (a *Assistant) snapshot() State {
	s := a.state
	s.Suggestions = slices.Clone(a.state.Suggestions)
	if s.Suggestions == nil {
		s.Suggestions = []Suggestion{}
	}
	return s
}

// Request starts a suggestion request for the current tasks. The returned
// channel is closed when the request finishes.
func (a *Assistant) Request(ctx context.Context) (<-chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Pending {
		return nil, cerr.NewError(cerr.Aborted, "suggestion request already in flight", nil)
	}
	now := time.Now()
	a.state.Pending = true
	a.state.RequestedAt = &now
	done := make(chan struct{})
	a.done = done

	tasks := a.store.Tasks()
	runCtx := clog.ContextWithSlog(a.ctx)
	clog.AddAttributes(runCtx, clog.GetAttributes(ctx))
	clog.AddAttribute(runCtx, "job", "suggest")

	a.wg.Go(panicerr.Logged(runCtx, "suggest", func(ctx context.Context) error {
		defer close(done)
		finished := false
		defer func() {
			// Still clears the busy flag when SuggestNext panics.
			if !finished {
				a.finish(ctx, nil, errors.New("suggestion request aborted"))
			}
		}()
		got, err := a.suggester.SuggestNext(ctx, tasks)
		a.finish(ctx, got, err)
		finished = true
		return nil
	}))
	return done, nil
}

func (a *Assistant) finish(ctx context.Context, got []Suggestion, err error) {
	now := time.Now()
	a.mu.Lock()
	a.state.Pending = false
	a.state.CompletedAt = &now
	a.batch++
	if err != nil {
		a.state.Suggestions = []Suggestion{}
		a.state.LastError = cerr.Message(err)
	} else {
		a.state.Suggestions = got
		a.state.LastError = ""
	}
	a.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "suggestion request failed", clog.ErrorAttributeKey, err)
	} else {
		slog.InfoContext(ctx, "suggestions ready", "count", len(got))
	}
	a.bus.PublishNew(eventbus.EventTypeSuggestionsReady, "")
}

// Suggest is Request followed by waiting for the result. While another
// request is pending it fails with Aborted like Request.
func (a *Assistant) Suggest(ctx context.Context) (State, error) {
	done, err := a.Request(ctx)
	if err != nil {
		return State{}, err
	}
	select {
	case <-done:
		return a.State(), nil
	case <-ctx.Done():
		return State{}, cerr.NewError(cerr.Canceled, "stopped waiting for suggestions", ctx.Err())
	}
}

// Accept adds suggestion index as a task and removes it from the list.
// The entry is taken out before the store write so it cannot be accepted
// twice; if the write fails it goes back unless a newer batch replaced it.
func (a *Assistant) Accept(ctx context.Context, index int) (task.Task, error) {
	a.mu.Lock()
	if index < 0 || index >= len(a.state.Suggestions) {
		a.mu.Unlock()
		return task.Task{}, cerr.NewError(cerr.NotFound, fmt.Sprintf("suggestion %d not found", index), nil)
	}
	s := a.state.Suggestions[index]
	batch := a.batch
	a.state.Suggestions = slices.Delete(slices.Clone(a.state.Suggestions), index, index+1)
	a.mu.Unlock()

	t, err := a.store.Add(ctx, task.AddInput{
		Title:       s.Title,
		Description: s.Description,
		Priority:    s.SuggestedPriority,
	})
	if err != nil {
		a.mu.Lock()
		if a.batch == batch {
			at := min(index, len(a.state.Suggestions))
			a.state.Suggestions = slices.Insert(slices.Clone(a.state.Suggestions), at, s)
		}
		a.mu.Unlock()
		return task.Task{}, err
	}
	return t, nil
}

// Discard removes suggestion index without adding it.
func (a *Assistant) Discard(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.state.Suggestions) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("suggestion %d not found", index), nil)
	}
	a.state.Suggestions = slices.Delete(slices.Clone(a.state.Suggestions), index, index+1)
	return nil
}

// Clear drops every suggestion and the last error.
func (a *Assistant) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Suggestions = []Suggestion{}
	a.state.LastError = ""
	a.batch++
}

// Wait blocks until every background request has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}
