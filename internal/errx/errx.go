// Package errx provides small helpers for attaching sentinel errors to
// causes so call sites can use errors.Is against package-level sentinels.
package errx

import "fmt"

// Wrap pairs a sentinel with its cause. Both remain visible to errors.Is.
// If cause is nil the sentinel is returned unchanged.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With annotates a sentinel with formatted detail.
func With(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w:%s", sentinel, fmt.Sprintf(format, args...))
}
