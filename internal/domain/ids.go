package domain

import (
	"strings"
	"unicode/utf8"
)

const maxReferenceBytes = 1500

// ValidReference reports whether id can name a single stored record. Path separators,
// dot segments and names wrapped in double underscores are rejected so a client supplied
// id always resolves to a lookup miss rather than a malformed path.
func ValidReference(id string) bool {
	if id == "" || len(id) > maxReferenceBytes || !utf8.ValidString(id) {
		return false
	}
	if strings.ContainsRune(id, '/') || id == "." || id == ".." {
		return false
	}
	if len(id) >= 4 && strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__") {
		return false
	}
	return true
}
