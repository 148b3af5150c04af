// Package sentinel watches a single file and reports when its content
// changes on disk.
package sentinel

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/sprintly/pkg/clog"
)

// DefaultDebounce is the delay after an fsnotify event before the checksum is
// compared, so that write+rename sequences settle first.
const DefaultDebounce = 100 * time.Millisecond

// Sentinel watches path for content changes.
type Sentinel struct {
	path     string
	debounce time.Duration

	mu       sync.Mutex
	lastHash [sha256.Size]byte
}

type Option func(*Sentinel)

func WithDebounce(d time.Duration) Option {
	return func(s *Sentinel) {
		s.debounce = d
	}
}

func New(path string, opts ...Option) *Sentinel {
	s := &Sentinel{
		path:     path,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done, calling onChange after each change of the
// file's content. onChange runs on the watcher goroutine; calls never overlap.
func (s *Sentinel) Run(ctx context.Context, onChange func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic replaces change the inode of the file.
	dir := filepath.Dir(s.path)
	name := filepath.Base(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	s.setHash(hashOrZero(s.path))

	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "watch_path", s.path)
	slog.DebugContext(ctx, "watching file for changes")

	fire := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if s.Changed() {
				onChange(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "fsnotify error", clog.ErrorAttributeKey, err)
		}
	}
}

// Changed re-hashes the file and reports whether the content differs from
// the last observed hash. A missing file hashes as zero.
func (s *Sentinel) Changed() bool {
	h := hashOrZero(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == s.lastHash {
		return false
	}
	s.lastHash = h
	return true
}

func (s *Sentinel) setHash(h [sha256.Size]byte) {
	s.mu.Lock()
	s.lastHash = h
	s.mu.Unlock()
}

func hashOrZero(path string) [sha256.Size]byte {
	h, err := HashFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to hash watched file", "path", path, clog.ErrorAttributeKey, err)
		}
		return [sha256.Size]byte{}
	}
	return h
}

// HashFile computes the SHA256 hash of the file at the given path.
func HashFile(path string) ([sha256.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("hash %s: %w", path, err)
	}

	var result [sha256.Size]byte
	copy(result[:], h.Sum(nil))
	return result, nil
}
