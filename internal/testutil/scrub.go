package testutil

import (
	"regexp"
	"strings"
)

var (
	sessionDirRe = regexp.MustCompile(`\b\d{9,}\.\d{6}\b`)
	uuidRe       = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

// Normalize unifies line endings and strips trailing whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ScrubSessionDirs replaces session directory timestamps.
func ScrubSessionDirs(s string) string {
	return sessionDirRe.ReplaceAllString(s, "[SESSION]")
}

// ScrubUUIDs replaces session ids.
func ScrubUUIDs(s string) string {
	return uuidRe.ReplaceAllString(s, "[UUID]")
}

// ScrubPaths replaces basePath, typically a t.TempDir().
func ScrubPaths(s, basePath string) string {
	return strings.ReplaceAll(s, basePath, "[WORKDIR]")
}

// ScrubAll applies every scrubber and normalizes the result.
func ScrubAll(s, basePath string) string {
	s = ScrubPaths(s, basePath)
	s = ScrubSessionDirs(s)
	s = ScrubUUIDs(s)
	return Normalize(s)
}
