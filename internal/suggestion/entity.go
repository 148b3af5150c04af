package suggestion

import "github.com/kazz187/sprintly/internal/task"

// Suggestion is a proposed task. It is never persisted.
type Suggestion struct {
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	SuggestedPriority task.Priority `json:"suggestedPriority"`
}
