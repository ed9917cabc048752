package imapparse

import (
	"strconv"
)

// FirstBodyStructure returns the first balanced parenthesized group in s,
// including the parens, e.g. the first body part of a multipart BODYSTRUCTURE.
// Parens in quoted strings and literals are skipped. False is returned if s
// has no complete group.
func FirstBodyStructure(s string) (string, bool) {
	start := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		case '"':
			i++
			for i < len(s) && s[i] != '"' {
				if s[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(s) {
				return "", false
			}
		case '{':
			end := i + 1
			for end < len(s) && s[end] >= '0' && s[end] <= '9' {
				end++
			}
			if end == i+1 || end+2 >= len(s) || s[end] != '}' || s[end+1:end+3] != "\r\n" {
				continue
			}
			n, err := strconv.Atoi(s[i+1 : end])
			if err != nil || n > len(s)-(end+3) {
				return "", false
			}
			// Continue after the literal data, the loop increment skips past the last byte.
			i = end + 3 + n - 1
		}
	}
	return "", false
}
