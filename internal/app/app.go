// Package app builds the Sprintly components from configuration. Both the
// HTTP server and the CLI run on top of an App.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/sprintly/internal/config"
	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/internal/preference"
	prefrepo "github.com/kazz187/sprintly/internal/preference/repositoryimpl"
	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
	taskrepo "github.com/kazz187/sprintly/internal/task/repositoryimpl"
	"github.com/kazz187/sprintly/pkg/clog"
	"github.com/kazz187/sprintly/pkg/sentinel"
	"github.com/kazz187/sprintly/pkg/storage"
)

type App struct {
	Env         *config.Env
	Storage     storage.Storage
	Bus         *eventbus.Bus
	Store       *task.Store
	Preferences *preference.Service
	Gateway     *suggestion.Gateway
	Assistant   *suggestion.Assistant

	watcher *sentinel.Sentinel
}

// New wires every component and loads the task list. ctx bounds background
// suggestion requests.
func New(ctx context.Context, env *config.Env) (*App, error) {
	st, err := NewStorage(ctx, env)
	if err != nil {
		return nil, err
	}
	return NewWithStorage(ctx, env, st), nil
}

// NewWithStorage is New with an already opened storage backend.
func NewWithStorage(ctx context.Context, env *config.Env, st storage.Storage) *App {
	bus := eventbus.New()

	store := task.NewStore(taskrepo.NewJSONRepository(st), bus)
	if err := store.Load(ctx); err != nil {
		// The store stays usable with an empty list.
		slog.ErrorContext(ctx, "failed to load tasks", clog.ErrorAttributeKey, err)
	}

	var gen suggestion.Generator
	if env.GeminiEnv.APIKey != "" {
		gen = suggestion.NewGeminiClient(env.GeminiEnv.BaseURL, env.GeminiEnv.APIKey, env.GeminiEnv.Model)
	} else {
		slog.InfoContext(ctx, "SPRINTLY_GEMINI_API_KEY is not set; suggestions are disabled")
	}
	gateway := suggestion.NewGateway(gen, env.GeminiEnv.Timeout)

	theme, err := preference.ParseTheme(env.DefaultTheme)
	if err != nil {
		theme = preference.ThemeLight
	}

	a := &App{
		Env:         env,
		Storage:     st,
		Bus:         bus,
		Store:       store,
		Preferences: preference.NewService(prefrepo.NewStorageRepository(st), bus, theme),
		Gateway:     gateway,
		Assistant:   suggestion.NewAssistant(ctx, gateway, store, bus),
	}
	if local, ok := st.(*storage.LocalStorage); ok && env.Watch {
		a.watcher = sentinel.New(local.Path(task.TasksKey))
	}
	return a
}

// NewStorage opens the backend selected by SPRINTLY_STORAGE_TYPE.
func NewStorage(ctx context.Context, env *config.Env) (storage.Storage, error) {
	var (
		st  storage.Storage
		err error
	)
	switch env.StorageEnv.Type {
	case config.StorageTypeS3:
		st, err = storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	case config.StorageTypeSQLite:
		st, err = storage.NewSQLiteStorage(ctx, env.SQLitePath)
	case config.StorageTypePostgres:
		st, err = storage.NewPostgresStorage(ctx, env.PostgresDSN)
	case config.StorageTypeMemory:
		st = storage.NewMemoryStorage()
	default:
		st, err = storage.NewLocalStorage(env.BaseDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", env.StorageEnv.Type, err)
	}
	return st, nil
}

// Watching reports whether Watch will do anything.
func (a *App) Watching() bool {
	return a.watcher != nil
}

// Watch reloads the task list whenever the tasks file is changed by another
// process. It blocks until ctx is done and returns immediately when the
// backend is not local storage.
func (a *App) Watch(ctx context.Context) error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Run(ctx, func(ctx context.Context) {
		if err := a.Store.Reload(ctx); err != nil {
			slog.WarnContext(ctx, "failed to reload tasks after external change, keeping current state", clog.ErrorAttributeKey, err)
		}
	})
}

// Close waits for pending suggestion requests and releases the storage.
func (a *App) Close() error {
	a.Assistant.Wait()
	return storage.Close(a.Storage)
}
