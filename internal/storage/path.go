package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const (
	DocumentsPrefix = "documents"
	RawPrefix       = "raw"
	ManifestPath    = DocumentsPrefix + "/_manifest.json"
)

var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildDocumentPartPath returns documents/date=YYYY-MM-DD/run-<id>.parquet.
func BuildDocumentPartPath(day time.Time, runID string) (string, error) {
	return buildRunPath(DocumentsPrefix, day, runID, "parquet")
}

// BuildRawArchivePath returns raw/date=YYYY-MM-DD/run-<id>.json.
func BuildRawArchivePath(day time.Time, runID string) (string, error) {
	return buildRunPath(RawPrefix, day, runID, "json")
}

func buildRunPath(prefix string, day time.Time, runID, ext string) (string, error) {
	if !runIDPattern.MatchString(runID) {
		return "", fmt.Errorf("invalid run id: %q", runID)
	}
	if day.IsZero() {
		return "", fmt.Errorf("day is required")
	}
	ts := day.UTC()
	return path.Join(
		prefix,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("run-%s.%s", runID, ext),
	), nil
}
