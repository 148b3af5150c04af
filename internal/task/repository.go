package task

import "context"

// TasksKey is the storage key holding the whole task sequence.
const TasksKey = "sprintly_tasks"

// Repository persists the whole sequence at once.
type Repository interface {
	// Load returns cerr.NotFound when nothing is stored yet and
	// cerr.DataLoss when the stored payload cannot be decoded.
	Load(ctx context.Context) ([]Task, error)
	Save(ctx context.Context, tasks []Task) error
}
