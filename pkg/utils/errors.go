package utils

import (
	"fmt"
)

// MakeError wraps a sentinel error with a formatted detail message, so
// callers can both fmt.Sprintf context and errors.Is against err.
func MakeError(err error, detailsBody string, args ...any) error {
	return fmt.Errorf("%w: "+detailsBody, append([]any{err}, args...)...)
}
