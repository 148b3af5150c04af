// Package mcp exposes the task tracker as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kazz187/sprintly/internal/preference"
	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
)

const priorityHelp = "Priority: URGENT, HIGH, MEDIUM or LOW"

// NewServer registers every tool against the given components.
func NewServer(version string, store *task.Store, assistant *suggestion.Assistant, classifier task.Classifier, prefs *preference.Service) *server.MCPServer {
	s := server.NewMCPServer("Sprintly", version)

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task to the top of the list."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task details")),
		mcp.WithString("priority", mcp.Description(priorityHelp+" (default MEDIUM)")),
		mcp.WithBoolean("auto_priority", mcp.Description("Let the assistant pick the priority; priority is ignored")),
	), addTaskHandler(store, classifier))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks sorted for display, with statistics over all tasks."),
		mcp.WithString("query", mcp.Description("Case-insensitive match on title or description")),
		mcp.WithString("priority", mcp.Description(priorityHelp+" or ALL")),
	), listTasksHandler(store))

	s.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip the completed flag of a task."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), toggleTaskHandler(store))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(store))

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Total, completed, progress percentage and open urgent count."),
	), getStatsHandler(store))

	s.AddTool(mcp.NewTool("suggest_tasks",
		mcp.WithDescription("Ask for follow-up tasks based on the current list. Suggestions are held until accepted or discarded."),
	), suggestTasksHandler(assistant))

	s.AddTool(mcp.NewTool("accept_suggestion",
		mcp.WithDescription("Add a pending suggestion as a task."),
		mcp.WithNumber("index", mcp.Description("Zero-based index into the current suggestions"), mcp.Required()),
	), acceptSuggestionHandler(assistant))

	s.AddTool(mcp.NewTool("classify_priority",
		mcp.WithDescription("Suggest a priority for a task without adding it."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task details")),
	), classifyPriorityHandler(classifier))

	s.AddTool(mcp.NewTool("get_theme",
		mcp.WithDescription("Get the display theme."),
	), getThemeHandler(prefs))

	s.AddTool(mcp.NewTool("set_theme",
		mcp.WithDescription("Set the display theme."),
		mcp.WithString("theme", mcp.Description("light, dark or toggle"), mcp.Required()),
	), setThemeHandler(prefs))

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		return mcp.NewToolResultError(ce.Msg)
	}
	return mcp.NewToolResultError(err.Error())
}

func addTaskHandler(store *task.Store, classifier task.Classifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in, err := task.ResolveAddInput(ctx, classifier, task.CreateTaskRequest{
			Title:        mcp.ParseString(request, "title", ""),
			Description:  mcp.ParseString(request, "description", ""),
			Priority:     mcp.ParseString(request, "priority", ""),
			AutoPriority: mcp.ParseBoolean(request, "auto_priority", false),
		})
		if err != nil {
			return errorResult(err), nil
		}
		t, err := store.Add(ctx, in)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(t)
	}
}

func listTasksHandler(store *task.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := task.ParsePriorityFilter(mcp.ParseString(request, "priority", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(task.Compose(store.Tasks(), task.Query{
			Search:   mcp.ParseString(request, "query", ""),
			Priority: filter,
		}))
	}
}

func toggleTaskHandler(store *task.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		t, found, err := store.ToggleComplete(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		if !found {
			return mcp.NewToolResultText(fmt.Sprintf("No task with id '%s'; nothing changed.", id)), nil
		}
		return jsonResult(t)
	}
}

func deleteTaskHandler(store *task.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		found, err := store.Delete(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		if !found {
			return mcp.NewToolResultText(fmt.Sprintf("No task with id '%s'; nothing changed.", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' deleted.", id)), nil
	}
}

func getStatsHandler(store *task.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(task.ComputeStats(store.Tasks()))
	}
}

func suggestTasksHandler(assistant *suggestion.Assistant) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := assistant.Suggest(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		if st.LastError != "" {
			return mcp.NewToolResultError(st.LastError), nil
		}
		return jsonResult(st.Suggestions)
	}
}

func acceptSuggestionHandler(assistant *suggestion.Assistant) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := assistant.Accept(ctx, mcp.ParseInt(request, "index", -1))
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(t)
	}
}

func classifyPriorityHandler(classifier task.Classifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		if strings.TrimSpace(title) == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		p := classifier.ClassifyPriority(ctx, title, mcp.ParseString(request, "description", ""))
		return mcp.NewToolResultText(string(p)), nil
	}
}

func getThemeHandler(prefs *preference.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(string(prefs.Theme(ctx))), nil
	}
}

func setThemeHandler(prefs *preference.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arg := mcp.ParseString(request, "theme", "")
		if strings.EqualFold(strings.TrimSpace(arg), "toggle") {
			t, err := prefs.ToggleTheme(ctx)
			if err != nil {
				return errorResult(err), nil
			}
			return mcp.NewToolResultText(string(t)), nil
		}
		t, err := preference.ParseTheme(arg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := prefs.SetTheme(ctx, t); err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(string(t)), nil
	}
}
