package imapparse

import (
	"strconv"
)

// Format returns the values in IMAP syntax, separated by spaces. Parsing the
// result yields values equal to l, as long as atoms and flags hold only atom
// characters.
func Format(l []Value) string {
	var buf []byte
	for i, v := range l {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = AppendValue(buf, v)
	}
	return string(buf)
}

// AppendValue appends v in IMAP syntax to buf. A Str is written as quoted
// string if possible, and as a synchronizing literal if it contains NUL, CR, LF
// or bytes with the high bit set.
func AppendValue(buf []byte, v Value) []byte {
	switch x := v.(type) {
	case Atom:
		return append(buf, x...)
	case Flag:
		buf = append(buf, '\\')
		return append(buf, x...)
	case Str:
		return appendString(buf, string(x))
	case List:
		buf = append(buf, '(')
		for i, e := range x {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = AppendValue(buf, e)
		}
		return append(buf, ')')
	case *AttributeSpec:
		return append(buf, x.String()...)
	}
	return buf
}

// appendString writes s as quoted string, or as literal if it has characters a
// quoted string cannot hold.
func appendString(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\x00' || c == '\r' || c == '\n' || c > 0x7f {
			buf = append(buf, '{')
			buf = strconv.AppendInt(buf, int64(len(s)), 10)
			buf = append(buf, "}\r\n"...)
			return append(buf, s...)
		}
	}
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\\' || c == '"' {
			buf = append(buf, '\\')
		}
		buf = append(buf, s[i])
	}
	return append(buf, '"')
}
