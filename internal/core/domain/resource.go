package domain

import (
	"mime"
	"strings"
)

// CreatedResource is the body returned for a successful create.
type CreatedResource struct {
	Resource string `json:"resource"`
}

// MediaTypeMatches reports whether the Content-Type header value names the
// same media type as want. Parameters such as charset are ignored and the
// comparison is case-insensitive. A header that does not parse never matches.
func MediaTypeMatches(header, want string) bool {
	got, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	wantType, _, err := mime.ParseMediaType(want)
	if err != nil {
		return false
	}
	return strings.EqualFold(got, wantType)
}

// ValidCollectionName reports whether name can be used as a single URL path
// segment.
func ValidCollectionName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '~':
		default:
			return false
		}
	}
	return true
}
