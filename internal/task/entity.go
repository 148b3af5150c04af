package task

import (
	"errors"
	"fmt"
	"strings"
)

// Task is a single to-do item. Only Completed changes after creation.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Completed   bool     `json:"completed" yaml:"completed"`
	// CreatedAt is Unix milliseconds.
	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
}

// Validate checks a record read back from storage.
func (t Task) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, errors.New("title is empty"))
	}
	if !t.Priority.Valid() {
		errs = append(errs, fmt.Errorf("priority %q is invalid", t.Priority))
	}
	if len(errs) > 0 {
		return fmt.Errorf("task %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// String renders a task on one line for terminals.
func (t Task) String() string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s %-6s %s", mark, t.ID, t.Priority.Label(), t.Title)
}
