package imapparse

import (
	"strconv"
)

// AString interprets v as an astring: a string that can be represented as an
// atom, a quoted string or a literal. It cannot be absent, NIL is returned as the
// text "NIL".
func AString(v Value) (string, error) {
	switch x := v.(type) {
	case Str:
		return string(x), nil
	case Atom:
		return string(x), nil
	}
	return "", &ShapeError{"astring", v}
}

// NString interprets v as an nstring: a quoted string or literal, or NIL for an
// absent value, for which nil is returned.
func NString(v Value) (*string, error) {
	switch x := v.(type) {
	case Str:
		s := string(x)
		return &s, nil
	case Atom:
		if x == NIL {
			return nil, nil
		}
	}
	return nil, &ShapeError{"nstring", v}
}

// Number interprets v as a decimal number, which IMAP represents as an atom.
func Number(v Value) (int64, error) {
	a, ok := v.(Atom)
	if !ok {
		return 0, &ShapeError{"number", v}
	}
	n, err := strconv.ParseInt(string(a), 10, 64)
	if err != nil {
		return 0, &ShapeError{"number", v}
	}
	return n, nil
}
