// Package taskgroup runs a fixed set of tasks together with shared
// cancellation, per-task completion signals and progress reporting.
package taskgroup

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/javi11/parchive/internal/progress"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrStarted    = errors.New("taskgroup: group already started")
	ErrNotStarted = errors.New("taskgroup: group not started")
	ErrNoTask     = errors.New("taskgroup: unknown task")
)

// Task is one unit of work. report may be called with the amount of work done
// so far out of total.
type Task func(ctx context.Context, report func(done, total int64)) error

// Result is emitted once per task when it returns.
type Result struct {
	TaskID uuid.UUID
	Err    error
}

type task struct {
	id   uuid.UUID
	fn   Task
	done chan struct{}
	err  error
}

// Group collects tasks and starts them together on a bounded pool.
type Group struct {
	id         uuid.UUID
	maxWorkers int
	reporter   progress.Reporter
	log        *slog.Logger
	onComplete []func(Result)

	mu      sync.Mutex
	tasks   []*task
	byID    map[uuid.UUID]*task
	started bool

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	results  chan Result
	done     chan struct{}
	err      error
	finished atomic.Int64
}

type Option func(*Group)

// WithMaxWorkers bounds how many tasks run at once. Defaults to GOMAXPROCS.
func WithMaxWorkers(n int) Option {
	return func(g *Group) {
		if n > 0 {
			g.maxWorkers = n
		}
	}
}

// WithProgress forwards task progress to r keyed by task ID.
func WithProgress(r progress.Reporter) Option {
	return func(g *Group) {
		g.reporter = r
	}
}

// OnTaskCompleted registers fn to run after each task returns.
func OnTaskCompleted(fn func(Result)) Option {
	return func(g *Group) {
		g.onComplete = append(g.onComplete, fn)
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(g *Group) {
		g.log = log
	}
}

func New(opts ...Option) *Group {
	ctx, cancel := context.WithCancel(context.Background())

	g := &Group{
		id:         uuid.New(),
		maxWorkers: runtime.GOMAXPROCS(0),
		log:        slog.Default().With("component", "taskgroup"),
		byID:       make(map[uuid.UUID]*task),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Group) ID() uuid.UUID {
	return g.id
}

// Add queues fn. Tasks only begin once Start is called.
func (g *Group) Add(fn Task) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return uuid.Nil, ErrStarted
	}

	t := &task{id: uuid.New(), fn: fn, done: make(chan struct{})}
	g.tasks = append(g.tasks, t)
	g.byID[t.id] = t

	return t.id, nil
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// Start runs every queued task. Cancelling parent cancels the group. Calling
// Start more than once, from any goroutine, starts the tasks only once.
func (g *Group) Start(parent context.Context) {
	g.startOnce.Do(func() {
		g.mu.Lock()
		g.started = true
		tasks := g.tasks
		g.results = make(chan Result, len(tasks))
		g.mu.Unlock()

		stop := context.AfterFunc(parent, g.cancel)

		p := pool.New().WithContext(g.ctx).WithMaxGoroutines(max(1, g.maxWorkers))
		for _, t := range tasks {
			p.Go(func(ctx context.Context) error {
				return g.run(ctx, t)
			})
		}

		go func() {
			defer stop()
			g.err = p.Wait()
			close(g.results)
			close(g.done)
			g.log.Debug("Task group finished", "group_id", g.id, "tasks", len(tasks), "error", g.err)
		}()
	})
}

func (g *Group) run(ctx context.Context, t *task) error {
	report := func(done, total int64) {
		if g.reporter != nil && total > 0 {
			g.reporter.Update(t.id, float64(done)/float64(total))
		}
	}

	err := ctx.Err()
	if err == nil {
		err = t.fn(ctx, report)
	}

	t.err = err
	close(t.done)
	g.finished.Add(1)

	res := Result{TaskID: t.id, Err: err}
	g.results <- res
	for _, fn := range g.onComplete {
		fn(res)
	}

	return err
}

// Cancel signals every task to stop.
func (g *Group) Cancel() {
	g.cancel()
}

// Context is the context tasks run with.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Done is closed once every task has returned.
func (g *Group) Done() <-chan struct{} {
	return g.done
}

// Results yields one Result per task and is closed when the group finishes.
// It is nil before Start.
func (g *Group) Results() <-chan Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started {
		return nil
	}
	return g.results
}

// TaskDone returns a channel closed when the task returns.
func (g *Group) TaskDone(id uuid.UUID) (<-chan struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.byID[id]
	if !ok {
		return nil, ErrNoTask
	}
	return t.done, nil
}

// TaskResult returns the result of a task once it has returned.
func (g *Group) TaskResult(id uuid.UUID) (Result, bool) {
	ch, err := g.TaskDone(id)
	if err != nil {
		return Result{TaskID: id, Err: err}, false
	}

	select {
	case <-ch:
		g.mu.Lock()
		defer g.mu.Unlock()
		return Result{TaskID: id, Err: g.byID[id].err}, true
	default:
		return Result{}, false
	}
}

// Finished is the number of tasks that have returned.
func (g *Group) Finished() int64 {
	return g.finished.Load()
}

// Wait blocks until the group finishes or ctx is done and returns the joined
// task errors.
func (g *Group) Wait(ctx context.Context) error {
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()

	if !started {
		return ErrNotStarted
	}

	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
