package task

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// DefaultPriority is used when no priority is chosen and when
// classification fails.
const DefaultPriority = PriorityMedium

// PriorityAttrs are the display and ordering attributes of a priority.
type PriorityAttrs struct {
	Label string
	// Rank orders priorities; lower is shown first.
	Rank  int
	Color color.Attribute
}

var priorityTable = map[Priority]PriorityAttrs{
	PriorityUrgent: {Label: "Urgent", Rank: 0, Color: color.FgRed},
	PriorityHigh:   {Label: "High", Rank: 1, Color: color.FgYellow},
	PriorityMedium: {Label: "Medium", Rank: 2, Color: color.FgBlue},
	PriorityLow:    {Label: "Low", Rank: 3, Color: color.FgWhite},
}

// Priorities returns every priority in rank order.
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

func (p Priority) Valid() bool {
	_, ok := priorityTable[p]
	return ok
}

func (p Priority) Attrs() PriorityAttrs {
	if a, ok := priorityTable[p]; ok {
		return a
	}
	return PriorityAttrs{Label: string(p), Rank: len(priorityTable), Color: color.Reset}
}

func (p Priority) Rank() int { return p.Attrs().Rank }

func (p Priority) Label() string { return p.Attrs().Label }

func (p Priority) String() string { return string(p) }

// ParsePriority accepts any casing and surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// PriorityFilter is a priority or FilterAll.
type PriorityFilter string

const FilterAll PriorityFilter = "ALL"

// ParsePriorityFilter treats an empty string as FilterAll.
func ParsePriorityFilter(s string) (PriorityFilter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	p, err := ParsePriority(s)
	if err != nil {
		return "", err
	}
	return PriorityFilter(p), nil
}

func (f PriorityFilter) Match(p Priority) bool {
	return f == "" || f == FilterAll || Priority(f) == p
}
