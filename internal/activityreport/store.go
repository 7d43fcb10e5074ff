package activityreport

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathFunc maps a report day to a file path.
type PathFunc func(day time.Time) string

// Store writes and reads the dated report and summary files.
type Store struct {
	reportPath  PathFunc
	summaryPath PathFunc
}

// NewStore creates a Store using the given path builders.
func NewStore(reportPath, summaryPath PathFunc) *Store {
	return &Store{reportPath: reportPath, summaryPath: summaryPath}
}

// WriteReport overwrites the report of day and returns its path.
func (s *Store) WriteReport(day time.Time, content string) (string, error) {
	return writeFile(s.reportPath(day), content)
}

// WriteSummary overwrites the summary of day and returns its path.
func (s *Store) WriteSummary(day time.Time, content string) (string, error) {
	return writeFile(s.summaryPath(day), content)
}

// ReadSummary returns the stored summary of day.
func (s *Store) ReadSummary(day time.Time) (string, error) {
	path := s.summaryPath(day)
	// #nosec G304 -- path comes from the operator's configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read summary file %s: %w", path, err)
	}
	return string(data), nil
}

func writeFile(path, content string) (string, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}
