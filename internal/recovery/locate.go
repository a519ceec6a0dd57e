package recovery

import (
	"context"
	"errors"
	"os"

	"github.com/javi11/parchive/internal/resource"
	"github.com/javi11/parchive/internal/scanner"
)

// locateSources opens every source file, first at its recorded path and
// otherwise by matching Hash16k against the files of the source directory.
func (s *Set) locateSources(ctx context.Context) error {
	claimed := make(map[string]bool)
	var unresolved []*sourceFile

	for _, f := range s.order {
		locator := resource.Join(s.sourceDir, f.desc.Name)
		f.locator = locator

		stream, err := s.resolver.OpenForRead(ctx, locator)
		switch {
		case err == nil:
			f.stream = stream
			claimed[locator] = true
			f.setStatus(StatusUnknown)
		case errors.Is(err, os.ErrNotExist):
			unresolved = append(unresolved, f)
		default:
			return err
		}
	}

	if len(unresolved) == 0 {
		return nil
	}

	candidates, err := s.candidates(ctx)
	if err != nil {
		return err
	}

	for _, f := range unresolved {
		locator, err := s.probe(ctx, f, candidates, claimed)
		if err != nil {
			return err
		}

		if locator == "" {
			f.setStatus(StatusMissing)
			s.log.InfoContext(ctx, "Source file missing", "file", f.desc.Name)
			continue
		}

		stream, err := s.resolver.OpenForRead(ctx, locator)
		if err != nil {
			return err
		}

		f.stream = stream
		f.locator = locator
		claimed[locator] = true
		f.setStatus(StatusUnknown)

		s.log.InfoContext(ctx, "Source file found under another name", "file", f.desc.Name, "found", locator)
	}

	return nil
}

func (s *Set) candidates(ctx context.Context) ([]scanner.Entry, error) {
	result, err := scanner.NewDirectoryScanner(s.resolver, scanner.WithRecursive(s.probeDeep)).Scan(ctx, s.sourceDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.Sources, nil
}

// probe returns the first unclaimed candidate whose head matches f, or "".
func (s *Set) probe(ctx context.Context, f *sourceFile, candidates []scanner.Entry, claimed map[string]bool) (string, error) {
	for _, c := range candidates {
		if claimed[c.Locator] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		head, ok := s.probeCache.Get(c.Locator)
		if !ok {
			stream, err := s.resolver.OpenForRead(ctx, c.Locator)
			if err != nil {
				s.log.DebugContext(ctx, "Cannot open probe candidate", "file", c.Locator, "error", err)
				continue
			}

			head, err = hash16k(stream)
			stream.Close()
			if err != nil {
				s.log.DebugContext(ctx, "Cannot read probe candidate", "file", c.Locator, "error", err)
				continue
			}

			s.probeCache.Add(c.Locator, head)
		}

		if head == f.desc.Hash16k {
			return c.Locator, nil
		}
	}

	return "", nil
}
