package eventbus

import "time"

type EventType string

const (
	EventTypeTaskCreated      EventType = "task.created"
	EventTypeTaskUpdated      EventType = "task.updated"
	EventTypeTaskDeleted      EventType = "task.deleted"
	EventTypeTasksReloaded    EventType = "tasks.reloaded"
	EventTypeThemeChanged     EventType = "theme.changed"
	EventTypeSuggestionsReady EventType = "suggestions.ready"
)

// Event is a change notification. ResourceID is the affected task id, the
// theme, or empty for whole-list events.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ResourceID string    `json:"resourceId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
