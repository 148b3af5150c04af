package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
)

type renderer struct {
	w     io.Writer
	color bool
}

func newRenderer(w io.Writer, useColor bool) *renderer {
	return &renderer{w: w, color: useColor}
}

func (r *renderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (r *renderer) badge(p task.Priority) string {
	return r.paint(p.Attrs().Color, color.Bold).Sprintf("%-6s", p.Label())
}

func (r *renderer) Line(s string) {
	fmt.Fprintln(r.w, s)
}

func (r *renderer) Notice(format string, args ...any) {
	r.paint(color.Faint).Fprintf(r.w, format+"\n", args...)
}

func (r *renderer) Priority(p task.Priority) {
	fmt.Fprintln(r.w, r.badge(p))
}

func (r *renderer) Task(t task.Task) {
	check := "[ ]"
	title := r.paint().Sprint(t.Title)
	if t.Completed {
		check = "[x]"
		title = r.paint(color.CrossedOut, color.Faint).Sprint(t.Title)
	}
	created := time.UnixMilli(t.CreatedAt).Format("2006-01-02 15:04")
	fmt.Fprintf(r.w, "%s %s %s  %s\n", check, r.badge(t.Priority), title, r.paint(color.Faint).Sprintf("%s  %s", t.ID, created))
	if t.Description != "" {
		fmt.Fprintf(r.w, "           %s\n", t.Description)
	}
}

func (r *renderer) Tasks(tasks []task.Task) {
	if len(tasks) == 0 {
		r.Notice("no tasks")
		return
	}
	for _, t := range tasks {
		r.Task(t)
	}
}

func (r *renderer) Stats(s task.Stats) {
	urgent := r.paint()
	if s.Urgent > 0 {
		urgent = r.paint(task.PriorityUrgent.Attrs().Color, color.Bold)
	}
	fmt.Fprintf(r.w, "%d/%d done (%d%%), %s\n", s.Completed, s.Total, s.Progress, urgent.Sprintf("%d urgent", s.Urgent))
}

func (r *renderer) Suggestions(ss []suggestion.Suggestion) {
	if len(ss) == 0 {
		r.Notice("no suggestions")
		return
	}
	for i, s := range ss {
		fmt.Fprintf(r.w, "%d. %s %s\n", i+1, r.badge(s.SuggestedPriority), s.Title)
		if s.Description != "" {
			fmt.Fprintf(r.w, "   %s\n", s.Description)
		}
	}
}
