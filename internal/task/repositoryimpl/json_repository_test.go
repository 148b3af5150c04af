package repositoryimpl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/storage"
)

func TestJSONRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewJSONRepository(storage.NewMemoryStorage())

	want := []task.Task{
		{ID: "b", Title: "Write docs", Description: "", Priority: task.PriorityLow, CreatedAt: 1700000000002},
		{ID: "a", Title: "Refactor Auth", Description: "move to \"oidc\"", Priority: task.PriorityUrgent, Completed: true, CreatedAt: 1700000000001},
	}
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJSONRepository_WireFormat(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	repo := NewJSONRepository(s)

	require.NoError(t, repo.Save(ctx, nil))
	raw, err := s.Read(ctx, task.TasksKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	require.NoError(t, repo.Save(ctx, []task.Task{{ID: "x", Title: "t", Priority: task.PriorityHigh, CreatedAt: 5}}))
	raw, err = s.Read(ctx, task.TasksKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"x","title":"t","description":"","priority":"HIGH","completed":false,"createdAt":5}]`, string(raw))
}

func TestJSONRepository_Absent(t *testing.T) {
	_, err := NewJSONRepository(storage.NewMemoryStorage()).Load(context.Background())
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
}

func TestJSONRepository_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":         `{{{`,
		"wrong shape":      `{"id":"a"}`,
		"bad priority":     `[{"id":"a","title":"t","priority":"SOMEDAY","completed":false,"createdAt":1}]`,
		"empty title":      `[{"id":"a","title":"  ","priority":"LOW","completed":false,"createdAt":1}]`,
		"missing id":       `[{"title":"t","priority":"LOW","completed":false,"createdAt":1}]`,
		"duplicate ids":    `[{"id":"a","title":"t","priority":"LOW"},{"id":"a","title":"u","priority":"LOW"}]`,
		"wrong field type": `[{"id":"a","title":"t","priority":"LOW","completed":"yes","createdAt":1}]`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := storage.NewMemoryStorage()
			require.NoError(t, s.Write(ctx, task.TasksKey, []byte(payload)))

			_, err := NewJSONRepository(s).Load(ctx)
			assert.True(t, cerr.IsCode(err, cerr.DataLoss), "got %v", err)

			backups, err := s.List(ctx, task.TasksKey+".corrupt-")
			require.NoError(t, err)
			require.Len(t, backups, 1)
			raw, err := s.Read(ctx, backups[0])
			require.NoError(t, err)
			assert.Equal(t, payload, string(raw))
		})
	}
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) Write(context.Context, string, []byte) error {
	return errors.New("read-only")
}

func TestJSONRepository_SaveError(t *testing.T) {
	err := NewJSONRepository(failingStorage{storage.NewMemoryStorage()}).Save(context.Background(), nil)
	assert.True(t, cerr.IsCode(err, cerr.Internal), "got %v", err)
}

func TestJSONRepository_Backups(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	repo := NewJSONRepository(s)

	keys, err := repo.Backups(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for range 2 {
		require.NoError(t, s.Write(ctx, task.TasksKey, []byte(`{broken`)))
		_, err := repo.Load(ctx)
		require.True(t, cerr.IsCode(err, cerr.DataLoss))
	}
	require.NoError(t, s.Write(ctx, "sprintly_theme", []byte("dark")))

	keys, err = repo.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, k := range keys {
		raw, err := s.Read(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, `{broken`, string(raw))
	}

	n, err := repo.PurgeBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	keys, err = repo.Backups(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	ok, err := s.Exists(ctx, "sprintly_theme")
	require.NoError(t, err)
	assert.True(t, ok)
}
