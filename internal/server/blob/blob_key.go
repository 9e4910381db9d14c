package blob

import (
	"regexp"
	"unicode/utf8"
)

// leading slashes, backslashes or any ".." sequence
var regexForbiddenPatterns = regexp.MustCompile(`^/+|\\+|\.\.`)

// ValidateKey reports whether key is safe to use as an object key and as a
// public path segment.
func ValidateKey(key string) bool {
	if len(key) == 0 || len(key) > 1024 {
		return false
	}
	if key == "." || key == ".." || regexForbiddenPatterns.MatchString(key) {
		return false
	}
	return utf8.ValidString(key)
}
