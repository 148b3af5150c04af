package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kazz187/sprintly/internal/app"
	"github.com/kazz187/sprintly/internal/config"
	"github.com/kazz187/sprintly/internal/mcp"
	"github.com/kazz187/sprintly/internal/preference"
	"github.com/kazz187/sprintly/internal/task"
	taskrepo "github.com/kazz187/sprintly/internal/task/repositoryimpl"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

var version = "dev"

var (
	cli     = kingpin.New("sprintly", "Single-user task tracker with AI-assisted planning")
	verbose = cli.Flag("verbose", "Log at debug level").Short('v').Bool()
	noColor = cli.Flag("no-color", "Disable colored output").Bool()

	addCmd         = cli.Command("add", "Add a task")
	addTitle       = addCmd.Arg("title", "Task title").Required().String()
	addDescription = addCmd.Flag("description", "Task details").Short('d').String()
	addPriority    = addCmd.Flag("priority", "URGENT, HIGH, MEDIUM, LOW or auto").Short('p').Default(string(task.DefaultPriority)).String()

	listCmd      = cli.Command("list", "List tasks").Alias("ls")
	listQuery    = listCmd.Flag("query", "Search title and description").Short('q').String()
	listPriority = listCmd.Flag("priority", "Only show this priority (or ALL)").Short('p').Default(string(task.FilterAll)).String()

	toggleCmd = cli.Command("toggle", "Toggle a task between open and completed")
	toggleID  = toggleCmd.Arg("id", "Task ID").Required().String()

	deleteCmd = cli.Command("delete", "Delete a task").Alias("rm")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	statsCmd = cli.Command("stats", "Show progress statistics")

	themeCmd = cli.Command("theme", "Show or change the display theme")
	themeArg = themeCmd.Arg("theme", "light, dark or toggle").Enum("light", "dark", "toggle")

	suggestCmd    = cli.Command("suggest", "Ask for follow-up tasks")
	suggestAccept = suggestCmd.Flag("accept", "Add suggestion N (1-based) as a task; repeatable").Ints()

	classifyCmd         = cli.Command("classify", "Suggest a priority for a task without adding it")
	classifyTitle       = classifyCmd.Arg("title", "Task title").Required().String()
	classifyDescription = classifyCmd.Flag("description", "Task details").Short('d').String()

	exportCmd    = cli.Command("export", "Write all tasks to stdout")
	exportFormat = exportCmd.Flag("format", "json or yaml").Default(string(task.ExportJSON)).Enum(string(task.ExportJSON), string(task.ExportYAML))

	backupsCmd   = cli.Command("backups", "List copies of unreadable task data kept by the loader")
	backupsPurge = backupsCmd.Flag("purge", "Delete the listed backups").Bool()

	mcpCmd = cli.Command("mcp", "Serve the task list as MCP tools over stdio")
)

func main() {
	cli.Version(version)
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	cli.FatalIfError(err, "")

	// Logs go to stderr; MCP uses stdout for the protocol.
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(
		clog.NewTextHandler(os.Stderr, clog.WithLevel(level), clog.WithColor(!*noColor)),
	)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, env)
	cli.FatalIfError(err, "")

	err = run(ctx, command, a, newRenderer(os.Stdout, !*noColor))
	if closeErr := a.Close(); closeErr != nil {
		slog.Error("failed to close storage", clog.ErrorAttributeKey, closeErr)
	}
	cli.FatalIfError(userError(err), "")
}

// userError strips internal detail from coded errors.
func userError(err error) error {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		return errors.New(ce.Msg)
	}
	return err
}

func run(ctx context.Context, command string, a *app.App, r *renderer) error {
	switch command {
	case addCmd.FullCommand():
		req := task.CreateTaskRequest{Title: *addTitle, Description: *addDescription}
		if strings.EqualFold(*addPriority, "auto") {
			req.AutoPriority = true
		} else {
			req.Priority = *addPriority
		}
		in, err := task.ResolveAddInput(ctx, a.Gateway, req)
		if err != nil {
			return err
		}
		t, err := a.Store.Add(ctx, in)
		if err != nil {
			return err
		}
		r.Task(t)

	case listCmd.FullCommand():
		filter, err := task.ParsePriorityFilter(*listPriority)
		if err != nil {
			return err
		}
		view := task.Compose(a.Store.Tasks(), task.Query{Search: *listQuery, Priority: filter})
		r.Tasks(view.Tasks)
		r.Stats(view.Stats)

	case toggleCmd.FullCommand():
		t, found, err := a.Store.ToggleComplete(ctx, *toggleID)
		if err != nil {
			return err
		}
		if !found {
			r.Notice("no task with id %s", *toggleID)
			return nil
		}
		r.Task(t)

	case deleteCmd.FullCommand():
		found, err := a.Store.Delete(ctx, *deleteID)
		if err != nil {
			return err
		}
		if !found {
			r.Notice("no task with id %s", *deleteID)
			return nil
		}
		r.Notice("deleted %s", *deleteID)

	case statsCmd.FullCommand():
		r.Stats(task.ComputeStats(a.Store.Tasks()))

	case themeCmd.FullCommand():
		return runTheme(ctx, a.Preferences, *themeArg, r)

	case suggestCmd.FullCommand():
		return runSuggest(ctx, a, *suggestAccept, r)

	case classifyCmd.FullCommand():
		if strings.TrimSpace(*classifyTitle) == "" {
			return errors.New("title is required")
		}
		r.Priority(a.Gateway.ClassifyPriority(ctx, *classifyTitle, *classifyDescription))

	case exportCmd.FullCommand():
		return task.Export(r.w, task.ExportFormat(*exportFormat), a.Store.Tasks())

	case backupsCmd.FullCommand():
		return runBackups(ctx, taskrepo.NewJSONRepository(a.Storage), *backupsPurge, r)

	case mcpCmd.FullCommand():
		return server.ServeStdio(mcp.NewServer(version, a.Store, a.Assistant, a.Gateway, a.Preferences))

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func runTheme(ctx context.Context, prefs *preference.Service, arg string, r *renderer) error {
	switch arg {
	case "":
	case "toggle":
		if _, err := prefs.ToggleTheme(ctx); err != nil {
			return err
		}
	default:
		t, err := preference.ParseTheme(arg)
		if err != nil {
			return err
		}
		if err := prefs.SetTheme(ctx, t); err != nil {
			return err
		}
	}
	r.Line(string(prefs.Theme(ctx)))
	return nil
}

func runSuggest(ctx context.Context, a *app.App, accept []int, r *renderer) error {
	st, err := a.Assistant.Suggest(ctx)
	if err != nil {
		return err
	}
	if st.LastError != "" {
		return errors.New(st.LastError)
	}
	r.Suggestions(st.Suggestions)
	if len(accept) == 0 {
		return nil
	}

	// Accept from the highest index down so earlier indexes stay valid.
	idx := slices.Clone(accept)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	slices.Reverse(idx)
	for _, n := range idx {
		t, err := a.Assistant.Accept(ctx, n-1)
		if err != nil {
			return fmt.Errorf("suggestion %d: %w", n, userError(err))
		}
		r.Task(t)
	}
	return nil
}

func runBackups(ctx context.Context, repo *taskrepo.JSONRepository, purge bool, r *renderer) error {
	keys, err := repo.Backups(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		r.Notice("no backups")
		return nil
	}
	for _, k := range keys {
		r.Line(k)
	}
	if !purge {
		return nil
	}
	n, err := repo.PurgeBackups(ctx)
	if err != nil {
		return err
	}
	r.Notice("deleted %d backups", n)
	return nil
}
