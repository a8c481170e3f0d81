package domain

import "strings"

// NormalizeMobile trims surrounding whitespace and drops any internal spaces or dashes.
// The result is used verbatim as the ApplicantID.
func NormalizeMobile(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
