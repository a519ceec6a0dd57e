// Package scanner finds recovery files and candidate source files in a directory.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/javi11/parchive/internal/par2"
	"github.com/javi11/parchive/internal/resource"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

var errScanCancelled = errors.New("scan cancelled")

// Entry is one regular file found by a scan.
type Entry struct {
	Locator string
	Size    int64
}

// Result groups what a scan found.
type Result struct {
	// RecoverySets maps set names to their recovery files, index file first.
	RecoverySets map[string][]par2.RecoveryFile
	Sources      []Entry
	Info         ScanInfo
}

// DirectoryScanner walks directories through a resource resolver.
type DirectoryScanner struct {
	resolver   *resource.Resolver
	recursive  bool
	maxWorkers int
	log        *slog.Logger
}

type Option func(*DirectoryScanner)

// WithRecursive controls whether subdirectories are walked. Defaults to true.
func WithRecursive(recursive bool) Option {
	return func(d *DirectoryScanner) {
		d.recursive = recursive
	}
}

// WithMaxWorkers bounds the concurrent signature checks.
func WithMaxWorkers(n int) Option {
	return func(d *DirectoryScanner) {
		if n > 0 {
			d.maxWorkers = n
		}
	}
}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner(resolver *resource.Resolver, opts ...Option) *DirectoryScanner {
	d := &DirectoryScanner{
		resolver:   resolver,
		recursive:  true,
		maxWorkers: 4,
		log:        slog.Default().With("component", "directory-scanner"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Scan enumerates dir. Files named like recovery files are kept only when they
// start with a packet signature; every other regular file is a source candidate.
func (d *DirectoryScanner) Scan(ctx context.Context, dir string) (*Result, error) {
	fs, root, err := d.resolver.Resolve(dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RecoverySets: make(map[string][]par2.RecoveryFile),
		Info:         ScanInfo{Path: dir},
	}

	var candidates []par2.RecoveryFile

	d.log.DebugContext(ctx, "Scanning directory", "dir", dir)

	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return errScanCancelled
		default:
		}

		if err != nil {
			d.log.WarnContext(ctx, "Error accessing path", "path", p, "error", err)
			errMsg := err.Error()
			result.Info.LastError = &errMsg
			return nil // Continue walking
		}

		if info.IsDir() {
			if p != root && !d.recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		result.Info.FilesFound++
		locator := resource.Rebase(dir, p)

		if strings.HasSuffix(strings.ToLower(p), ".par2") {
			if rf, err := par2.ParseRecoveryFile(locator); err == nil {
				candidates = append(candidates, rf)
				return nil
			}
		}

		result.Sources = append(result.Sources, Entry{Locator: locator, Size: info.Size()})

		return nil
	})
	if errors.Is(err, errScanCancelled) {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	valid, err := d.filterRecoveryFiles(ctx, fs, candidates)
	if err != nil {
		return nil, err
	}

	for _, rf := range valid {
		result.RecoverySets[rf.Name] = append(result.RecoverySets[rf.Name], rf)
	}
	for name := range result.RecoverySets {
		sortRecoveryFiles(result.RecoverySets[name])
	}
	result.Info.RecoveryFiles = len(valid)
	result.Info.SourceFiles = len(result.Sources)

	d.log.InfoContext(ctx, "Directory scan completed",
		"dir", dir,
		"files_found", result.Info.FilesFound,
		"recovery_files", result.Info.RecoveryFiles,
		"sets", len(result.RecoverySets))

	return result, nil
}

// FindRecoveryFiles returns every recovery file in the directory of locator
// that belongs to the same set.
func (d *DirectoryScanner) FindRecoveryFiles(ctx context.Context, locator string) ([]par2.RecoveryFile, error) {
	rf, err := par2.ParseRecoveryFile(locator)
	if err != nil {
		return nil, err
	}

	scanner := *d
	scanner.recursive = false

	result, err := scanner.Scan(ctx, resource.Dir(locator))
	if err != nil {
		return nil, err
	}

	files := result.RecoverySets[rf.Name]
	if len(files) == 0 {
		return nil, fmt.Errorf("no recovery files found for set %q", rf.Name)
	}

	return files, nil
}

func (d *DirectoryScanner) filterRecoveryFiles(ctx context.Context, fs afero.Fs, candidates []par2.RecoveryFile) ([]par2.RecoveryFile, error) {
	p := pool.NewWithResults[*par2.RecoveryFile]().
		WithContext(ctx).
		WithMaxGoroutines(d.maxWorkers)

	for _, rf := range candidates {
		p.Go(func(ctx context.Context) (*par2.RecoveryFile, error) {
			_, path := resource.Split(rf.Locator)

			f, err := fs.Open(path)
			if err != nil {
				d.log.WarnContext(ctx, "Cannot open recovery file", "file", rf.Locator, "error", err)
				return nil, nil
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				d.log.WarnContext(ctx, "Cannot stat recovery file", "file", rf.Locator, "error", err)
				return nil, nil
			}

			found, err := par2.ContainsSignature(f, info.Size())
			if err != nil {
				d.log.WarnContext(ctx, "Cannot read recovery file", "file", rf.Locator, "error", err)
				return nil, nil
			}
			if !found {
				d.log.DebugContext(ctx, "Skipping file without PAR2 signature", "file", rf.Locator)
				return nil, nil
			}

			return &rf, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	valid := make([]par2.RecoveryFile, 0, len(results))
	for _, rf := range results {
		if rf != nil {
			valid = append(valid, *rf)
		}
	}

	return valid, nil
}

// sortRecoveryFiles puts the index file first, then volumes by first exponent.
func sortRecoveryFiles(files []par2.RecoveryFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].Exponents, files[j].Exponents
		switch {
		case a == nil && b == nil:
			return files[i].Locator < files[j].Locator
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.First < b.First
		}
	})
}
