// Package recovery creates PAR2 recovery sets and verifies and repairs the
// files they protect.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/javi11/parchive/internal/gf16"
	"github.com/javi11/parchive/internal/par2"
	"github.com/javi11/parchive/internal/progress"
	"github.com/javi11/parchive/internal/resource"
)

// sourceFile is the per-file state. Everything but status and slices is
// written while loading only; status and slices are owned by the file's
// verify task.
type sourceFile struct {
	desc    *par2.FileDescriptionPacket
	checks  *par2.SliceChecksumPacket
	locator string
	stream  resource.Stream

	// firstSlice is the global index of the file's first slice.
	firstSlice  int
	recoverable bool
	oversize    bool

	status atomic.Int32
	slices []Status
}

func (f *sourceFile) Status() Status {
	return Status(f.status.Load())
}

func (f *sourceFile) setStatus(s Status) {
	f.status.Store(int32(s))
}

// FileInfo is a snapshot of one source file of a set.
type FileInfo struct {
	ID      par2.FileID
	Name    string
	Length  int64
	Slices  int
	Locator string
	Status  Status
}

// Summary is published when a verification completes.
type Summary struct {
	Files                   int
	Damaged                 int
	Missing                 int
	RequiredRecoverySlices  int64
	AvailableRecoverySlices int
}

// Repairable reports whether the set holds enough recovery slices.
func (s Summary) Repairable() bool {
	return s.RequiredRecoverySlices <= int64(s.AvailableRecoverySlices)
}

// Set is an open recovery set.
type Set struct {
	resolver   *resource.Resolver
	table      *gf16.Table
	log        *slog.Logger
	maxWorkers int
	reporter   progress.Reporter
	probeDeep  bool
	probeCache *lru.Cache[string, [16]byte]
	sourceDir  string

	onFileVerified []func(FileInfo)
	onVerified     []func(Summary)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	opDone chan struct{}

	name     string
	setID    par2.RecoverySetID
	main     *par2.MainPacket
	creator  string
	files    map[par2.FileID]*sourceFile
	order    []*sourceFile
	recovery map[uint32]*par2.RecoverySlicePacket
	streams  []resource.Stream

	required  atomic.Int64
	completed chan struct{}
	once      sync.Once
}

type Option func(*Set)

// WithMaxWorkers bounds the number of files verified at once.
func WithMaxWorkers(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithProgress reports per-file verification progress keyed by task ID.
func WithProgress(r progress.Reporter) Option {
	return func(s *Set) {
		s.reporter = r
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Set) {
		s.log = log
	}
}

// WithProbeCacheSize sets how many Hash16k fingerprints of candidate files are cached.
func WithProbeCacheSize(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.probeCache, _ = lru.New[string, [16]byte](n)
		}
	}
}

// WithProbeSubdirectories controls whether the content probe looks below the source directory.
func WithProbeSubdirectories(deep bool) Option {
	return func(s *Set) {
		s.probeDeep = deep
	}
}

// WithSourceDir sets where source files are looked for. Defaults to the
// directory of the first recovery file.
func WithSourceDir(dir string) Option {
	return func(s *Set) {
		s.sourceDir = dir
	}
}

// OnFileVerified registers fn to run as each file's verification finishes.
func OnFileVerified(fn func(FileInfo)) Option {
	return func(s *Set) {
		s.onFileVerified = append(s.onFileVerified, fn)
	}
}

// OnVerificationCompleted registers fn to run when a verification of the whole set finishes.
func OnVerificationCompleted(fn func(Summary)) Option {
	return func(s *Set) {
		s.onVerified = append(s.onVerified, fn)
	}
}

// New returns an uninitialized set.
func New(resolver *resource.Resolver, opts ...Option) *Set {
	cache, _ := lru.New[string, [16]byte](1024)

	s := &Set{
		resolver:   resolver,
		table:      gf16.Default,
		log:        slog.Default().With("component", "recovery-set"),
		maxWorkers: runtime.GOMAXPROCS(0),
		probeDeep:  true,
		probeCache: cache,
		files:      make(map[par2.FileID]*sourceFile),
		recovery:   make(map[uint32]*par2.RecoverySlicePacket),
		completed:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open loads a recovery set from files and locates its source files.
func Open(ctx context.Context, resolver *resource.Resolver, files []par2.RecoveryFile, opts ...Option) (*Set, error) {
	s := New(resolver, opts...)
	if err := s.Open(ctx, files); err != nil {
		return nil, err
	}
	return s, nil
}

// begin moves the set into a running state if it is in one of from.
func (s *Set) begin(ctx context.Context, op string, running State, from ...State) (context.Context, func(State), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := false
	for _, f := range from {
		if s.state == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil, stateError(op, s.state)
	}

	s.state = running
	opCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.opDone = done

	end := func(next State) {
		s.mu.Lock()
		defer s.mu.Unlock()

		cancel()
		s.cancel = nil
		s.opDone = nil
		if s.state == running {
			s.state = next
		}
		close(done)
	}

	return opCtx, end, nil
}

// Close cancels any running operation, releases every stream the set holds and
// empties it. Closing a closed set does nothing.
func (s *Set) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}

	if s.cancel != nil {
		s.cancel()
		done := s.opDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	err := s.release()
	s.state = StateClosed

	return err
}

// release closes every stream and resets the in-memory model. Callers hold mu
// or own the set exclusively.
func (s *Set) release() error {
	var errs []error

	for _, f := range s.order {
		if f.stream != nil {
			errs = append(errs, f.stream.Close())
			f.stream = nil
		}
	}
	for _, st := range s.streams {
		errs = append(errs, st.Close())
	}

	s.streams = nil
	s.order = nil
	s.files = make(map[par2.FileID]*sourceFile)
	s.recovery = make(map[uint32]*par2.RecoverySlicePacket)
	s.main = nil
	s.name = ""
	s.creator = ""
	s.setID = par2.RecoverySetID{}
	s.required.Store(0)

	return errors.Join(errs...)
}

func (s *Set) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Set) Name() string                  { return s.name }
func (s *Set) SetID() par2.RecoverySetID     { return s.setID }
func (s *Set) Creator() string               { return s.creator }
func (s *Set) Main() *par2.MainPacket        { return s.main }
func (s *Set) AvailableRecoverySlices() int  { return len(s.recovery) }
func (s *Set) RequiredRecoverySlices() int64 { return s.required.Load() }

func (s *Set) SliceSize() int64 {
	if s.main == nil {
		return 0
	}
	return s.main.SliceSize
}

// Completed is closed when the first verification of the set finishes.
func (s *Set) Completed() <-chan struct{} {
	return s.completed
}

// Files lists the source files in recovery order.
func (s *Set) Files() []FileInfo {
	infos := make([]FileInfo, 0, len(s.order))
	for _, f := range s.order {
		infos = append(infos, s.fileInfo(f))
	}
	return infos
}

// FileStatus returns the status of one source file.
func (s *Set) FileStatus(id par2.FileID) (Status, bool) {
	f, ok := s.files[id]
	if !ok {
		return StatusUnknown, false
	}
	return f.Status(), true
}

// SliceStatuses returns the per-slice result of the last verification of a file.
func (s *Set) SliceStatuses(id par2.FileID) []Status {
	f, ok := s.files[id]
	if !ok {
		return nil
	}
	return append([]Status(nil), f.slices...)
}

func (s *Set) fileInfo(f *sourceFile) FileInfo {
	return FileInfo{
		ID:      f.desc.FileID,
		Name:    f.desc.Name,
		Length:  f.desc.Length,
		Slices:  len(f.checks.Checksums),
		Locator: f.locator,
		Status:  f.Status(),
	}
}

func (s *Set) summary() Summary {
	sum := Summary{
		Files:                   len(s.order),
		RequiredRecoverySlices:  s.required.Load(),
		AvailableRecoverySlices: len(s.recovery),
	}
	for _, f := range s.order {
		switch f.Status() {
		case StatusDamaged:
			sum.Damaged++
		case StatusMissing:
			sum.Missing++
		}
	}
	return sum
}

// Summary describes the outcome of the last verification.
func (s *Set) Summary() Summary {
	return s.summary()
}
