package task

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

type Query struct {
	Search   string
	Priority PriorityFilter
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	// Progress is the completed share as a rounded percentage.
	Progress int `json:"progress"`
	// Urgent counts incomplete URGENT tasks.
	Urgent int `json:"urgent"`
}

type View struct {
	Tasks []Task `json:"tasks"`
	Stats Stats  `json:"stats"`
}

// Compose filters and sorts tasks for display. Stats always cover the
// whole, unfiltered sequence. tasks is not modified.
func Compose(tasks []Task, q Query) View {
	shown := Filter(tasks, q)
	Sort(shown)
	return View{Tasks: shown, Stats: ComputeStats(tasks)}
}

// Filter returns the tasks matching both the search text and the priority
// filter, in their original order.
func Filter(tasks []Task, q Query) []Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !q.Priority.Match(t.Priority) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sort orders incomplete before completed, then by priority rank, then
// newest first.
func Sort(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if a.Completed != b.Completed {
			if a.Completed {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
}

func ComputeStats(tasks []Task) Stats {
	var st Stats
	st.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			st.Completed++
		} else if t.Priority == PriorityUrgent {
			st.Urgent++
		}
	}
	if st.Total > 0 {
		st.Progress = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
