package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from supervised command lines and log messages.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// user:password@ in URLs (curl, git, database DSNs)
		`(?i)[a-z][a-z0-9+.-]*://[^\s/:@]+:[^\s/@]+@`,
		// Authorization headers passed with -H
		`(?i)(authorization|x-api-key):\s*[^\s"']+(\s+[^\s"']+)?`,
		// Bearer tokens
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		// --password=..., --token ..., --api-key=...
		`(?i)--?(password|passwd|token|secret|api[_-]?key)[=\s]+[^\s"']+`,
		// KEY=value environment prefixes
		`(?i)\b[A-Z0-9_]*(PASSWORD|SECRET|TOKEN|API_KEY)=[^\s"']+`,
		// GitHub tokens
		`gh[pousr]_[A-Za-z0-9]{36}`,
		// AWS Access Key
		`AKIA[0-9A-Z]{16}`,
		// Slack tokens
		`xox[baprs]-[0-9a-zA-Z-]{10,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// SanitizeArgs redacts each argument independently.
func (s *Sanitizer) SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = s.Sanitize(a)
	}
	return out
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// SetRedactedPlaceholder sets the placeholder text for redacted content.
func (s *Sanitizer) SetRedactedPlaceholder(placeholder string) {
	s.redacted = placeholder
}
