// Package panicerr turns panics in background work into errors.
package panicerr

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/panics"

	"github.com/kazz187/sprintly/pkg/clog"
)

// Safe wraps fn so that a panic is returned as an error.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeContext is Safe for functions that take a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Logged returns a func() suitable for conc.WaitGroup.Go that runs fn under
// SafeContext and logs a returned error or panic instead of propagating it.
func Logged(ctx context.Context, name string, fn func(context.Context) error) func() {
	return func() {
		if err := SafeContext(fn)(ctx); err != nil {
			clog.AddError(ctx, err)
			slog.ErrorContext(ctx, "background task failed", "task", name, clog.ErrorAttributeKey, err)
		}
	}
}
