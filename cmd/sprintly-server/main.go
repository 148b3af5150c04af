package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/sprintly/internal"
	"github.com/kazz187/sprintly/internal/app"
	"github.com/kazz187/sprintly/internal/config"
	"github.com/kazz187/sprintly/internal/event"
	"github.com/kazz187/sprintly/internal/preference"
	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/clog"
	"github.com/kazz187/sprintly/pkg/panicerr"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.IsLocal() {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, env)
	if err != nil {
		slog.Error("failed to set up app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	srv := server.NewServer(
		env,
		task.NewServer(a.Store, a.Gateway),
		preference.NewServer(a.Preferences),
		suggestion.NewServer(a.Assistant, a.Gateway),
		event.NewServer(a.Bus),
	)

	var wg conc.WaitGroup
	if a.Watching() {
		wg.Go(panicerr.Logged(ctx, "watch", a.Watch))
	}
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
}
