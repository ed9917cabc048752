package imapparse

import (
	"strings"
)

// Value is a parsed token from an IMAP response. Its dynamic type is one of Atom,
// Flag, Str, List or *AttributeSpec. Values must not be modified after parsing.
//
// String returns the value in IMAP syntax, as written by Format.
type Value interface {
	String() string
	imapValue()
}

// Atom is an unquoted token, e.g. a keyword like FETCH, a number or NIL.
type Atom string

// Flag is a token that was prefixed by a backslash, e.g. \Seen. The backslash is
// not part of the name.
type Flag string

// Str is the content of a quoted string or a literal.
type Str string

// List is a parenthesized list of values, possibly empty.
type List []Value

// AttributeSpec is a message attribute with a section, such as
// BODY[HEADER.FIELDS (FROM)]<0>, as found in FETCH responses.
type AttributeSpec struct {
	Primary string // Text before the "[", e.g. "BODY". Can be empty.

	// Section text between the brackets, an Atom or a nested *AttributeSpec. Nil
	// when the brackets are empty, as in BODY[].
	MsgText Value

	// Header field names, each an Atom or Str. Nil when absent, non-nil but
	// empty for "()".
	HeaderList List

	// Partial range including "<" and ">", e.g. "<0>" or "<0.100>". Empty when
	// absent.
	Range Atom
}

// NIL is the atom IMAP uses to indicate absence of a value.
const NIL = Atom("NIL")

func (Atom) imapValue()           {}
func (Flag) imapValue()           {}
func (Str) imapValue()            {}
func (List) imapValue()           {}
func (*AttributeSpec) imapValue() {}

func (a Atom) String() string { return string(a) }
func (f Flag) String() string { return `\` + string(f) }
func (s Str) String() string  { return string(AppendValue(nil, s)) }
func (l List) String() string { return string(AppendValue(nil, l)) }

func (a *AttributeSpec) String() string {
	var b strings.Builder
	b.WriteString(a.Primary)
	b.WriteByte('[')
	if a.MsgText != nil {
		b.WriteString(a.MsgText.String())
	}
	if a.HeaderList != nil {
		b.WriteByte(' ')
		b.WriteString(a.HeaderList.String())
	}
	b.WriteByte(']')
	b.WriteString(string(a.Range))
	return b.String()
}

// Equal returns whether a and b are the same value tree. Values of different
// types are never equal, so Atom("NIL") and Str("NIL") differ, as do Atom("Seen")
// and Flag("Seen"). A nil and an empty List are equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Atom:
		y, ok := b.(Atom)
		return ok && x == y
	case Flag:
		y, ok := b.(Flag)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case List:
		y, ok := b.(List)
		return ok && EqualList(x, y)
	case *AttributeSpec:
		y, ok := b.(*AttributeSpec)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Primary == y.Primary &&
			Equal(x.MsgText, y.MsgText) &&
			(x.HeaderList == nil) == (y.HeaderList == nil) &&
			EqualList(x.HeaderList, y.HeaderList) &&
			x.Range == y.Range
	}
	return false
}

// EqualList compares two sequences of values with Equal.
func EqualList(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// kind returns a short description of the type of v, for error messages.
func kind(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case Atom:
		return "atom"
	case Flag:
		return "flag"
	case Str:
		return "string"
	case List:
		return "list"
	case *AttributeSpec:
		return "attribute specifier"
	}
	return "unknown value"
}
