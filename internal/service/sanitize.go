package service

import (
	"errors"
	"regexp"
	"unicode"
)

// Query length bounds.
const (
	minQueryLen = 1
	maxQueryLen = 500
)

// Sanitization errors. All map to a validation error at the boundary.
var (
	ErrQueryEmpty    = errors.New("query must not be empty")
	ErrQueryTooLong  = errors.New("query exceeds the 500 character limit")
	ErrQueryControl  = errors.New("query contains control characters")
	ErrQueryInjected = errors.New("query contains a disallowed instruction pattern")
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// SanitizeQuery rejects queries that are empty, oversized, carry control
// characters, or match a known prompt-injection family. Rejected input never
// reaches the pipeline.
func SanitizeQuery(query string) error {
	if len(query) < minQueryLen {
		return ErrQueryEmpty
	}
	if len(query) > maxQueryLen {
		return ErrQueryTooLong
	}
	for _, r := range query {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return ErrQueryControl
		}
	}
	for _, re := range injectionPatterns {
		if re.MatchString(query) {
			return ErrQueryInjected
		}
	}
	return nil
}
