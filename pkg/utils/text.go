// Package utils provides shared helpers for vectors, display text, and logging.
package utils

// Truncate shortens s to at most maxLen bytes for display, appending "..."
// when anything was cut. Chunk texts can run to thousands of characters;
// source previews only need the opening. Non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
