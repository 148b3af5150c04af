package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
)

func TestRenderer_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)

	r.Task(task.Task{ID: "01H", Title: "Refactor Auth", Description: "oauth", Priority: task.PriorityUrgent, Completed: true})
	out := buf.String()
	assert.Contains(t, out, "[x] Urgent Refactor Auth")
	assert.Contains(t, out, "01H")
	assert.Contains(t, out, "oauth")
	assert.NotContains(t, out, "\x1b[")

	buf.Reset()
	r.Stats(task.Stats{Total: 4, Completed: 1, Progress: 25, Urgent: 2})
	assert.Equal(t, "1/4 done (25%), 2 urgent\n", buf.String())

	buf.Reset()
	r.Suggestions([]suggestion.Suggestion{{Title: "Ship", SuggestedPriority: task.PriorityLow}})
	assert.Equal(t, "1. Low    Ship\n", buf.String())

	buf.Reset()
	r.Tasks(nil)
	assert.Equal(t, "no tasks\n", buf.String())
}

func TestRenderer_Color(t *testing.T) {
	var buf bytes.Buffer
	newRenderer(&buf, true).Priority(task.PriorityHigh)
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "High")
}
