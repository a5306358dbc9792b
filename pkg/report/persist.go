package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EcMarius/secprobe/pkg/probe"
)

// File name parts of persisted results.
const (
	RunFilePrefix   = "security_test_results_"
	SuiteFilePrefix = "results_"
	FileExt         = ".json"
	fileTimeLayout  = "20060102_150405"
)

// runTagLen is how much of the run id is appended to report names.
const runTagLen = 8

// FileName returns the name of the run report written at t. The leading
// part of runID keeps runs finished within the same second apart.
func FileName(t time.Time, runID string) string {
	name := RunFilePrefix + t.Format(fileTimeLayout)
	if tag := strings.ReplaceAll(runID, "-", ""); tag != "" {
		if len(tag) > runTagLen {
			tag = tag[:runTagLen]
		}
		name += "_" + tag
	}
	return name + FileExt
}

// SuiteFileName returns the name of a standalone suite results file.
func SuiteFileName(key string) string {
	return SuiteFilePrefix + key + FileExt
}

// IsRunFile reports whether name looks like a run report file.
func IsRunFile(name string) bool {
	return strings.HasPrefix(name, RunFilePrefix) && strings.HasSuffix(name, FileExt)
}

// IsSuiteFile reports whether name looks like a standalone suite file.
func IsSuiteFile(name string) bool {
	return strings.HasPrefix(name, SuiteFilePrefix) && strings.HasSuffix(name, FileExt)
}

// Save writes r to dir and returns the file path.
func Save(dir string, r RunReport) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, FileName(r.FinishedAt, r.RunID))
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveSuite writes the bare results array of a standalone suite run.
func SaveSuite(dir, key string, records []probe.Record) (string, error) {
	if records == nil {
		records = []probe.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	path := filepath.Join(dir, SuiteFileName(key))
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a run report.
func Load(path string) (RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunReport{}, fmt.Errorf("read report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return RunReport{}, fmt.Errorf("%w: %s: %v", ErrInvalidReport, filepath.Base(path), err)
	}
	return r, nil
}

// LoadSuite reads a standalone suite results file.
func LoadSuite(path string) ([]probe.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var records []probe.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResults, filepath.Base(path), err)
	}
	return records, nil
}

// writeFile writes through a temporary file so a failed write never leaves
// a truncated result behind.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".secprobe-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
