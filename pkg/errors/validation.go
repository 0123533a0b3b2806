package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds record identifiers accepted from query strings and corpus files.
const maxIDLength = 128

// ValidateID validates a record identifier (folder, term, thinker, note) for
// safety. Identifiers end up in cache keys and database filters, so the rules
// are conservative:
//   - No empty identifiers
//   - No control characters or whitespace
//   - No path separators
//   - Maximum length of 128 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "%s id cannot be empty", kind)
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidID, "%s id too long (max %d characters)", kind, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidID, "%s id contains invalid characters", kind)
		}
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidID, "%s id cannot contain path separators", kind)
	}

	return nil
}

// ValidateOptionalID is like [ValidateID] but accepts the empty string, which
// callers use to mean "no filter".
func ValidateOptionalID(kind, id string) error {
	if id == "" {
		return nil
	}
	return ValidateID(kind, id)
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
