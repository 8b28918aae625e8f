// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Escapes user input used inside LIKE patterns.

package store

import "strings"

// escapeSQLLike escapes %, _ and \ for use with LIKE ... ESCAPE '\'.
// The backslash must be escaped first to avoid double-escaping.
func escapeSQLLike(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}
