package repositoryimpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
	"github.com/kazz187/sprintly/pkg/storage"
)

// JSONRepository stores the task sequence as one JSON array under
// task.TasksKey.
type JSONRepository struct {
	storage storage.Storage
}

func NewJSONRepository(s storage.Storage) *JSONRepository {
	return &JSONRepository{storage: s}
}

// CorruptKey is where an undecodable payload is copied before it can be
// overwritten.
func CorruptKey(id string) string {
	return fmt.Sprintf("%s.corrupt-%s", task.TasksKey, id)
}

func (r *JSONRepository) Load(ctx context.Context) ([]task.Task, error) {
	data, err := r.storage.Read(ctx, task.TasksKey)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	tasks, decodeErr := decode(data)
	if decodeErr == nil {
		return tasks, nil
	}

	backup := CorruptKey(ulid.Make().String())
	if err := r.storage.Write(ctx, backup, data); err != nil {
		decodeErr = errors.Join(decodeErr, fmt.Errorf("failed to back up payload: %w", err))
	} else {
		slog.WarnContext(ctx, "backed up malformed tasks payload", "key", backup, clog.ErrorAttributeKey, decodeErr)
	}
	return nil, cerr.WrapStorageDecodeError("tasks", decodeErr)
}

func decode(data []byte) ([]task.Task, error) {
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return tasks, nil
}

func (r *JSONRepository) Save(ctx context.Context, tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal tasks: %w", err))
	}
	if err := r.storage.Write(ctx, task.TasksKey, data); err != nil {
		return cerr.WrapStorageWriteError("tasks", err)
	}
	return nil
}

// Backups lists the keys written by Load for malformed payloads, oldest
// first.
func (r *JSONRepository) Backups(ctx context.Context) ([]string, error) {
	keys, err := r.storage.List(ctx, CorruptKey(""))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task backups", err)
	}
	return keys, nil
}

// PurgeBackups deletes every backup and returns how many were removed.
func (r *JSONRepository) PurgeBackups(ctx context.Context) (int, error) {
	keys, err := r.Backups(ctx)
	if err != nil {
		return 0, err
	}
	for i, key := range keys {
		if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return i, cerr.WrapStorageDeleteError(key, err)
		}
	}
	return len(keys), nil
}
