// Package history browses the result files written to the output
// directory: full run reports and standalone suite results.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/EcMarius/secprobe/pkg/report"
)

// Sentinel errors for lookups.
var (
	ErrNoResults = errors.New("history: no result files found")
	ErrNotFound  = errors.New("history: result file not found")
)

// Latest selects the newest result file in Resolve.
const Latest = "latest"

// Kind tells run reports from suite result arrays.
type Kind string

const (
	KindRun   Kind = "run"
	KindSuite Kind = "suite"
)

// Entry is one result file.
type Entry struct {
	Name    string
	Path    string
	Kind    Kind
	ModTime time.Time
	Size    int64
}

// SuiteKey returns the suite key of a standalone results file.
func (e Entry) SuiteKey() string {
	return strings.TrimSuffix(strings.TrimPrefix(e.Name, report.SuiteFilePrefix), report.FileExt)
}

// Store reads result files from one directory.
type Store struct {
	dir string
}

// NewStore returns a store over dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store reads.
func (s *Store) Dir() string { return s.dir }

// List returns the result files, newest first. A missing directory is an
// empty list.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.dir, err)
	}

	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		kind, ok := kindOf(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(s.dir, de.Name()),
			Kind:    kind,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func kindOf(name string) (Kind, bool) {
	switch {
	case report.IsRunFile(name):
		return KindRun, true
	case report.IsSuiteFile(name):
		return KindSuite, true
	}
	return "", false
}

// Resolve finds a result file by name, or the newest one for "latest".
func (s *Store) Resolve(name string) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoResults
	}
	if name == "" || name == Latest {
		return entries[0], nil
	}
	base := filepath.Base(name)
	for _, e := range entries {
		if e.Name == base {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, base)
}

// Show renders a result file to w.
func (s *Store) Show(w io.Writer, e Entry, opts report.RenderOptions) error {
	switch e.Kind {
	case KindRun:
		rep, err := report.Load(e.Path)
		if err != nil {
			return err
		}
		return report.Render(w, rep, opts)
	default:
		records, err := report.LoadSuite(e.Path)
		if err != nil {
			return err
		}
		return report.RenderSuite(w, e.SuiteKey(), records, opts)
	}
}

// DeleteAll removes every result file and returns how many were removed.
func (s *Store) DeleteAll() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
