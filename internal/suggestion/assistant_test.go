package suggestion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/internal/task/repositoryimpl"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/storage"
)

type fakeSuggester struct {
	release chan struct{}
	out     []suggestion.Suggestion
	err     error
	panics  bool
	seen    []task.Task
}

func (f *fakeSuggester) SuggestNext(ctx context.Context, tasks []task.Task) ([]suggestion.Suggestion, error) {
	f.seen = tasks
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("boom")
	}
	return f.out, f.err
}

var twoSuggestions = []suggestion.Suggestion{
	{Title: "Add tests", Description: "cover auth", SuggestedPriority: task.PriorityHigh},
	{Title: "Ship", Description: "tag a release", SuggestedPriority: task.PriorityLow},
}

func newAssistant(t *testing.T, s suggestion.Suggester, bus *eventbus.Bus) (*suggestion.Assistant, *task.Store) {
	t.Helper()
	st := task.NewStore(repositoryimpl.NewJSONRepository(storage.NewMemoryStorage()), bus)
	require.NoError(t, st.Load(context.Background()))
	a := suggestion.NewAssistant(context.Background(), s, st, bus)
	t.Cleanup(a.Wait)
	return a, st
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("suggestion request did not finish")
	}
}

func TestAssistant_BusyGate(t *testing.T) {
	f := &fakeSuggester{release: make(chan struct{}), out: twoSuggestions}
	bus := eventbus.New()
	_, events := bus.Subscribe(8)
	a, _ := newAssistant(t, f, bus)

	done, err := a.Request(context.Background())
	require.NoError(t, err)
	st := a.State()
	assert.True(t, st.Pending)
	assert.NotNil(t, st.RequestedAt)

	_, err = a.Request(context.Background())
	assert.True(t, cerr.IsCode(err, cerr.Aborted), "got %v", err)
	_, err = a.Suggest(context.Background())
	assert.True(t, cerr.IsCode(err, cerr.Aborted), "got %v", err)

	close(f.release)
	waitDone(t, done)

	st = a.State()
	assert.False(t, st.Pending)
	assert.Equal(t, twoSuggestions, st.Suggestions)
	assert.Empty(t, st.LastError)
	assert.NotNil(t, st.CompletedAt)

	select {
	case ev := <-events:
		assert.Equal(t, eventbus.EventTypeSuggestionsReady, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no suggestions.ready event")
	}

	// The gate reopens once the request is done.
	f.release = nil
	_, err = a.Suggest(context.Background())
	require.NoError(t, err)
}

func TestAssistant_SeesCurrentTasks(t *testing.T) {
	f := &fakeSuggester{}
	a, st := newAssistant(t, f, nil)
	_, err := st.Add(context.Background(), task.AddInput{Title: "Refactor Auth", Priority: task.PriorityUrgent})
	require.NoError(t, err)

	_, err = a.Suggest(context.Background())
	require.NoError(t, err)
	require.Len(t, f.seen, 1)
	assert.Equal(t, "Refactor Auth", f.seen[0].Title)
}

func TestAssistant_Failure(t *testing.T) {
	f := &fakeSuggester{out: twoSuggestions}
	a, _ := newAssistant(t, f, nil)
	_, err := a.Suggest(context.Background())
	require.NoError(t, err)
	require.Len(t, a.State().Suggestions, 2)

	f.err = cerr.NewError(cerr.Unavailable, "suggestion service unavailable", errors.New("dial tcp"))
	st, err := a.Suggest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Suggestions)
	assert.Equal(t, "suggestion service unavailable", st.LastError)
}

func TestAssistant_PanicClearsPending(t *testing.T) {
	a, _ := newAssistant(t, &fakeSuggester{panics: true}, nil)
	st, err := a.Suggest(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Pending)
	assert.NotEmpty(t, st.LastError)
	assert.Empty(t, st.Suggestions)
}

func TestAssistant_AcceptDiscard(t *testing.T) {
	bus := eventbus.New()
	a, store := newAssistant(t, &fakeSuggester{out: twoSuggestions}, bus)
	_, err := a.Suggest(context.Background())
	require.NoError(t, err)

	created, err := a.Accept(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ship", created.Title)
	assert.Equal(t, "tag a release", created.Description)
	assert.Equal(t, task.PriorityLow, created.Priority)
	assert.False(t, created.Completed)
	require.Len(t, store.Tasks(), 1)
	assert.Equal(t, []suggestion.Suggestion{twoSuggestions[0]}, a.State().Suggestions)
	assert.Equal(t, "Ship", twoSuggestions[1].Title, "source slice is untouched")

	_, err = a.Accept(context.Background(), 1)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
	assert.True(t, cerr.IsCode(a.Discard(-1), cerr.NotFound))

	require.NoError(t, a.Discard(0))
	assert.Empty(t, a.State().Suggestions)
	require.Len(t, store.Tasks(), 1)
}

func TestAssistant_Clear(t *testing.T) {
	a, _ := newAssistant(t, &fakeSuggester{err: errors.New("x")}, nil)
	st, err := a.Suggest(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, st.LastError)

	a.Clear()
	st = a.State()
	assert.Empty(t, st.LastError)
	assert.NotNil(t, st.Suggestions)
	assert.Empty(t, st.Suggestions)
}

// slowStorage blocks every Write until release is closed, or fails it
// when fail is set.
type slowStorage struct {
	storage.Storage
	writing chan struct{}
	release chan struct{}
	once    sync.Once
	fail    error
}

func (s *slowStorage) Write(ctx context.Context, key string, data []byte) error {
	if s.writing != nil {
		s.once.Do(func() { close(s.writing) })
		<-s.release
	}
	if s.fail != nil {
		return s.fail
	}
	return s.Storage.Write(ctx, key, data)
}

func TestAssistant_AcceptDoesNotBlockState(t *testing.T) {
	ctx := context.Background()
	slow := &slowStorage{Storage: storage.NewMemoryStorage()}
	store := task.NewStore(repositoryimpl.NewJSONRepository(slow), nil)
	require.NoError(t, store.Load(ctx))
	a := suggestion.NewAssistant(ctx, &fakeSuggester{out: twoSuggestions}, store, nil)
	t.Cleanup(a.Wait)
	_, err := a.Suggest(ctx)
	require.NoError(t, err)

	slow.writing = make(chan struct{})
	slow.release = make(chan struct{})
	accepted := make(chan error, 1)
	go func() {
		_, err := a.Accept(ctx, 0)
		accepted <- err
	}()
	<-slow.writing

	stateRead := make(chan suggestion.State, 1)
	go func() { stateRead <- a.State() }()
	select {
	case st := <-stateRead:
		assert.Equal(t, []suggestion.Suggestion{twoSuggestions[1]}, st.Suggestions)
	case <-time.After(5 * time.Second):
		t.Fatal("State blocked while a suggestion was being stored")
	}
	_, err = a.Accept(ctx, 1)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "accepted entry is gone: %v", err)

	close(slow.release)
	require.NoError(t, <-accepted)
	require.Len(t, store.Tasks(), 1)
	assert.Equal(t, "Add tests", store.Tasks()[0].Title)
}

func TestAssistant_AcceptFailureRestoresSuggestion(t *testing.T) {
	ctx := context.Background()
	broken := &slowStorage{Storage: storage.NewMemoryStorage()}
	store := task.NewStore(repositoryimpl.NewJSONRepository(broken), nil)
	require.NoError(t, store.Load(ctx))
	a := suggestion.NewAssistant(ctx, &fakeSuggester{out: twoSuggestions}, store, nil)
	t.Cleanup(a.Wait)
	_, err := a.Suggest(ctx)
	require.NoError(t, err)

	broken.fail = errors.New("read-only")
	_, err = a.Accept(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, twoSuggestions, a.State().Suggestions)
	assert.Empty(t, store.Tasks())
}
