package docstore

import (
	"fmt"
	"strings"
)

// CleanPath normalises a collection path and validates its shape. Collection
// paths alternate collection and document segments and end on a collection, so
// they have an odd number of non-empty segments.
func CleanPath(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	if len(segments)%2 == 0 {
		return "", fmt.Errorf("%w: %q is a document path", ErrInvalidPath, path)
	}
	return trimmed, nil
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}
