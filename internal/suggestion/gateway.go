package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

// Gateway asks a Generator for task suggestions and priority
// classifications. It never retries and never caches.
type Gateway struct {
	gen     Generator
	timeout time.Duration
}

// NewGateway returns a Gateway. A nil gen disables it: SuggestNext fails
// with FailedPrecondition and ClassifyPriority returns the default.
func NewGateway(gen Generator, timeout time.Duration) *Gateway {
	return &Gateway{gen: gen, timeout: timeout}
}

func (g *Gateway) Enabled() bool {
	return g != nil && g.gen != nil
}

func priorityNames() []string {
	ps := task.Priorities()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

var suggestionsSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"title":       {Type: "STRING"},
			"description": {Type: "STRING"},
			"suggestedPriority": {
				Type:        "STRING",
				Description: "Must be one of URGENT, HIGH, MEDIUM, or LOW",
				Enum:        priorityNames(),
			},
		},
		Required: []string{"title", "description", "suggestedPriority"},
	},
}

var prioritySchema = &Schema{
	Type: "OBJECT",
	Properties: map[string]*Schema{
		"priority": {Type: "STRING", Enum: priorityNames()},
	},
	Required: []string{"priority"},
}

// Summarize renders tasks as "title (PRIORITY)" joined by ", ".
func Summarize(tasks []task.Task) string {
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = fmt.Sprintf("%s (%s)", t.Title, t.Priority)
	}
	return strings.Join(parts, ", ")
}

func suggestPrompt(tasks []task.Task) string {
	return fmt.Sprintf("Given the existing tasks: [%s], suggest 3 new productive tasks that would logically follow. "+
		"Provide a brief description and a recommended priority (URGENT, HIGH, MEDIUM, LOW).", Summarize(tasks))
}

func classifyPrompt(title, description string) string {
	return fmt.Sprintf("Analyze the following task and categorize its priority as URGENT, HIGH, MEDIUM, or LOW based on its context.\n"+
		"Task: %s\nDetails: %s\nReturn only the priority level.", title, description)
}

func (g *Gateway) generate(ctx context.Context, prompt string, schema *Schema) ([]byte, error) {
	if !g.Enabled() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "suggestions are not configured", nil)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out, err := g.gen.GenerateJSON(ctx, prompt, schema)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrMalformedResponse):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		return nil, cerr.NewError(cerr.DeadlineExceeded, "suggestion service timed out", err)
	case errors.Is(err, context.Canceled):
		return nil, cerr.NewError(cerr.Canceled, "suggestion request canceled", err)
	default:
		return nil, cerr.NewError(cerr.Unavailable, "suggestion service unavailable", err)
	}
}

// SuggestNext asks for follow-up tasks. A response that cannot be parsed
// into complete suggestions yields an empty list and a nil error; transport
// failures and timeouts are returned.
func (g *Gateway) SuggestNext(ctx context.Context, tasks []task.Task) ([]Suggestion, error) {
	raw, err := g.generate(ctx, suggestPrompt(tasks), suggestionsSchema)
	if errors.Is(err, ErrMalformedResponse) {
		slog.WarnContext(ctx, "failed to parse suggestion response", clog.ErrorAttributeKey, err)
		return []Suggestion{}, nil
	}
	if err != nil {
		return nil, err
	}
	out, err := ParseSuggestions(raw)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse suggestion response", clog.ErrorAttributeKey, err)
		return []Suggestion{}, nil
	}
	return out, nil
}

type rawSuggestion struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	SuggestedPriority *string `json:"suggestedPriority"`
}

// ParseSuggestions decodes a JSON array of suggestions. Every element must
// carry all three fields with a known priority.
func ParseSuggestions(raw []byte) ([]Suggestion, error) {
	var items []rawSuggestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid suggestions payload: %w", err)
	}
	out := make([]Suggestion, 0, len(items))
	for i, it := range items {
		if it.Title == nil || it.Description == nil || it.SuggestedPriority == nil {
			return nil, fmt.Errorf("suggestion %d is missing a field", i)
		}
		if strings.TrimSpace(*it.Title) == "" {
			return nil, fmt.Errorf("suggestion %d has an empty title", i)
		}
		p, err := task.ParsePriority(*it.SuggestedPriority)
		if err != nil {
			return nil, fmt.Errorf("suggestion %d: %w", i, err)
		}
		out = append(out, Suggestion{
			Title:             strings.TrimSpace(*it.Title),
			Description:       strings.TrimSpace(*it.Description),
			SuggestedPriority: p,
		})
	}
	return out, nil
}

// ClassifyPriority asks for a single priority. Any failure yields
// task.DefaultPriority.
func (g *Gateway) ClassifyPriority(ctx context.Context, title, description string) task.Priority {
	raw, err := g.generate(ctx, classifyPrompt(title, description), prioritySchema)
	if err != nil {
		if g.Enabled() {
			slog.WarnContext(ctx, "priority classification failed, using default", clog.ErrorAttributeKey, err)
		}
		return task.DefaultPriority
	}
	var resp struct {
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.WarnContext(ctx, "failed to parse priority response, using default", clog.ErrorAttributeKey, err)
		return task.DefaultPriority
	}
	p, err := task.ParsePriority(resp.Priority)
	if err != nil {
		slog.WarnContext(ctx, "unknown priority in response, using default", "priority", resp.Priority)
		return task.DefaultPriority
	}
	return p
}
