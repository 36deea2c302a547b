// Package pathspec canonicalizes repository-relative paths and answers
// path-hierarchy containment for permission rules.
package pathspec

import (
	"errors"
	"strings"
)

// ErrInvalidPath is returned when a path contains "." or ".." segments.
var ErrInvalidPath = errors.New("invalid path")

// Normalize canonicalizes a repository-relative path:
//   - empty, whitespace-only and "/" all normalize to "/"
//   - a single leading "/" is ensured, repeated "/" collapse
//   - a trailing "/" is stripped unless the path is exactly "/"
//   - "." and ".." segments are rejected with ErrInvalidPath
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "/" {
		return "/", nil
	}
	var segments []string
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." {
			return "", ErrInvalidPath
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(segments, "/"), nil
}

// IsUnder reports whether a rule at rulePath applies to requestedPath.
// A rule at "/" matches everything. Otherwise the requested path must equal
// the rule path or continue it at a segment boundary, so "/trunk-extra" is
// not under "/trunk". Both arguments must already be normalized.
func IsUnder(requestedPath, rulePath string) bool {
	if rulePath == "/" {
		return true
	}
	if !strings.HasPrefix(requestedPath, rulePath) {
		return false
	}
	return len(requestedPath) == len(rulePath) || requestedPath[len(rulePath)] == '/'
}
