// Package logutil holds helpers for writing user-supplied values to logs.
package logutil

import "strings"

// SanitizeForLog flattens newlines and drops control characters so a
// profile name or hostname cannot forge extra log lines.
func SanitizeForLog(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r != 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}
