package identity

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// InvalidIdentityError is returned when a raw username can't be turned into a storage key
type InvalidIdentityError struct {
	Value  string
	Reason string
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid username %q: %s", e.Value, e.Reason)
}

// Normalize turns the submitted username into the key under which textures are stored.
// The result is trimmed and case folded without regard to any locale, so "Steve" and " steve "
// address the same textures. Values that could escape the storage root are rejected.
func Normalize(raw string) (string, error) {
	result := cases.Fold().String(strings.TrimSpace(raw))
	if result == "" {
		return "", &InvalidIdentityError{Value: raw, Reason: "username is required"}
	}

	if strings.ContainsAny(result, "/\\\x00") || strings.Contains(result, "..") {
		return "", &InvalidIdentityError{Value: raw, Reason: "username must not contain path separators"}
	}

	return result, nil
}
