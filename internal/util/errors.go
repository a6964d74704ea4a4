// Package util provides shared helpers used across the checklist service.
package util

import (
	"fmt"
	"io"
	"log/slog"
)

// WrapError adds the failed operation to err as "failed to <operation>".
// A nil err stays nil.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// SafeClose closes c for use in defer statements. Close errors are logged
// with the resource name; a nil c is ignored.
func SafeClose(c io.Closer, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "resource", name, "error", err)
	}
}
