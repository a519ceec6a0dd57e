// Package resource resolves locators to seekable byte streams.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"
)

const (
	SchemeFile   = "file"
	SchemeMemory = "mem"
)

// Stream is an open resource.
type Stream = afero.File

// UnsupportedSchemeError is returned for a locator whose scheme has no filesystem.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("resource: unsupported scheme %q", e.Scheme)
}

// Resolver maps locator schemes to filesystems.
type Resolver struct {
	mu  sync.RWMutex
	fss map[string]afero.Fs

	attempts uint
	delay    time.Duration
	log      *slog.Logger
}

type Option func(*Resolver)

// WithRetry sets how often a transiently failing open is attempted.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(r *Resolver) {
		if attempts > 0 {
			r.attempts = attempts
		}
		r.delay = delay
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver returns a resolver with the local filesystem registered under "file".
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fss:      map[string]afero.Fs{SchemeFile: afero.NewOsFs()},
		attempts: 3,
		delay:    50 * time.Millisecond,
		log:      slog.Default().With("component", "resource-resolver"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register binds scheme to fs, replacing any previous binding.
func (r *Resolver) Register(scheme string, fs afero.Fs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fss[strings.ToLower(scheme)] = fs
}

// Resolve returns the filesystem and path a locator refers to.
func (r *Resolver) Resolve(locator string) (afero.Fs, string, error) {
	scheme, p := Split(locator)

	r.mu.RLock()
	fs, ok := r.fss[scheme]
	r.mu.RUnlock()

	if !ok {
		return nil, "", &UnsupportedSchemeError{Scheme: scheme}
	}

	return fs, p, nil
}

func (r *Resolver) OpenForRead(ctx context.Context, locator string) (Stream, error) {
	fs, p, err := r.Resolve(locator)
	if err != nil {
		return nil, err
	}

	return r.open(ctx, locator, func() (afero.File, error) {
		return fs.Open(p)
	})
}

// OpenForWrite opens locator read-write, creating it and its parent directory if needed.
// Existing content is kept.
func (r *Resolver) OpenForWrite(ctx context.Context, locator string) (Stream, error) {
	fs, p, err := r.Resolve(locator)
	if err != nil {
		return nil, err
	}

	if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", locator, err)
	}

	return r.open(ctx, locator, func() (afero.File, error) {
		return fs.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
	})
}

func (r *Resolver) open(ctx context.Context, locator string, fn func() (afero.File, error)) (Stream, error) {
	var f afero.File

	err := retry.Do(
		func() error {
			var err error
			f, err = fn()
			return err
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			r.log.DebugContext(ctx, "Open failed, retrying",
				"attempt", n+1,
				"locator", locator,
				"error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EINTR)
}

// Split separates a locator into its scheme and path. Locators without a
// scheme are local paths.
func Split(locator string) (scheme, p string) {
	if i := strings.Index(locator, "://"); i > 0 && validScheme(locator[:i]) {
		return strings.ToLower(locator[:i]), locator[i+3:]
	}
	return SchemeFile, locator
}

func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func prefix(locator string) string {
	if i := strings.Index(locator, "://"); i > 0 && validScheme(locator[:i]) {
		return locator[:i+3]
	}
	return ""
}

// Dir returns the locator of the directory containing locator.
func Dir(locator string) string {
	_, p := Split(locator)
	return prefix(locator) + filepath.Dir(p)
}

// Join appends a slash-separated relative path to a directory locator.
func Join(dir, rel string) string {
	_, p := Split(dir)
	return prefix(dir) + filepath.Join(p, filepath.FromSlash(rel))
}

// Rel returns target relative to dir, slash separated.
func Rel(dir, target string) (string, error) {
	_, d := Split(dir)
	_, t := Split(target)

	rel, err := filepath.Rel(d, t)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// Rebase returns the locator for path p on the same scheme as like.
func Rebase(like, p string) string {
	return prefix(like) + p
}
