package imapparse

import (
	"fmt"
	"strconv"
)

// DefaultMaxDepth is the nesting limit for lists and attribute specifiers used
// when Parser.MaxDepth is zero.
const DefaultMaxDepth = 1024

// Atom characters: all printable bytes except those that start or end other
// tokens, list wildcards and the closing bracket. The opening bracket is an atom
// character, it starts the section of an attribute specifier. Bytes with the
// high bit set are allowed, for UTF-8 in atoms.
var atomChars = func() (r [256]bool) {
	for c := 0x21; c <= 0xff; c++ {
		r[c] = c != 0x7f
	}
	for _, c := range []byte(`(){%*"\]`) {
		r[c] = false
	}
	return
}()

func isAtomChar(c byte) bool {
	return atomChars[c]
}

// Parser parses IMAP responses. The zero value is ready for use.
type Parser struct {
	// Maximum nesting of lists and attribute specifiers. Zero means
	// DefaultMaxDepth, a negative value means no limit.
	MaxDepth int
}

// Parse parses a complete response with the default Parser.
//
// For example, `(UID 17 FLAGS (\Deleted))` parses into a single List containing
// Atom("UID"), Atom("17"), Atom("FLAGS") and a List with Flag("Deleted").
func Parse(s string) ([]Value, error) {
	return Parser{}.Parse(s)
}

// Parse parses s into its top-level values, in order. An empty input yields an
// empty sequence. If s does not follow the response grammar, an *Error is
// returned and no values.
func (pr Parser) Parse(s string) (values []Value, rerr error) {
	rerr = pr.run(s, func(p *parser) {
		values = p.xsequence(')')
		if !p.c.empty() {
			p.xerrorf(ErrNesting, "unmatched close paren or leftover data")
		}
	})
	if rerr != nil {
		return nil, rerr
	}
	return values, nil
}

// ParseCode parses a response code in brackets at the start of s, such as
// "[UIDVALIDITY 1]" or `[BADCHARSET ("x]y")]`, and returns the values between
// the brackets and the text following the closing bracket. A "]" in a quoted
// string or literal does not end the code.
func (pr Parser) ParseCode(s string) (values []Value, rest string, rerr error) {
	rerr = pr.run(s, func(p *parser) {
		if b, ok := p.c.peek(); !ok || b != '[' {
			p.xerrorf(ErrUnexpectedChar, "response code must start with [")
		}
		p.c.advance()
		values = p.xsequence(']')
		b, ok := p.c.peek()
		if !ok {
			p.xerrorf(ErrUnterminatedSpec, "missing ] after response code")
		} else if b != ']' {
			p.xerrorf(ErrNesting, "unmatched close paren in response code")
		}
		p.c.advance()
		rest = p.c.rest()
	})
	if rerr != nil {
		return nil, "", rerr
	}
	return values, rest, nil
}

// run calls fn with a new parser for s, returning the *Error fn panics with.
func (pr Parser) run(s string, fn func(p *parser)) (rerr error) {
	maxDepth := pr.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &parser{c: cursor{s: s}, maxDepth: maxDepth}
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		err, ok := x.(*Error)
		if !ok {
			panic(x)
		}
		rerr = err
	}()

	fn(p)
	return nil
}

type parser struct {
	c        cursor
	depth    int
	maxDepth int // Negative for unlimited.
}

func (p *parser) xerrorf(err error, format string, args ...any) {
	p.xerrorAtf(p.c.o, err, format, args...)
}

// xerrorAtf is like xerrorf, but for an error at offset o, typically the
// byte just consumed.
func (p *parser) xerrorAtf(o int, err error, format string, args ...any) {
	panic(&Error{err, fmt.Sprintf(format, args...), p.c.s, o})
}

func (p *parser) xnest() {
	p.depth++
	if p.maxDepth >= 0 && p.depth > p.maxDepth {
		p.xerrorf(ErrTooDeep, "more than %d levels", p.maxDepth)
	}
}

func (p *parser) unnest() {
	p.depth--
}

// xsequence reads space-separated values until the end of input, a ")" or
// end, which is left for the caller.
func (p *parser) xsequence(end byte) []Value {
	l := []Value{}
	for {
		b, ok := p.c.peek()
		if !ok || b == ')' || b == end {
			return l
		}

		var v Value
		switch {
		case b == '"':
			v = Str(p.xquoted())
		case b == '{':
			v = Str(p.xliteral())
		case b == '(':
			v = p.xlist()
		case b == '\\':
			v = p.xflag()
		case isAtomChar(b):
			v = p.xatom()
		default:
			p.xerrorf(ErrUnexpectedChar, "%q does not start a token", b)
		}
		l = append(l, v)

		b, ok = p.c.peek()
		switch {
		case !ok || b == ')' || b == end:
			return l
		case b == ' ':
			p.c.advance()
		case b == '(':
			// Lists don't need a separating space, e.g. in body structures.
			if _, isList := v.(List); !isList {
				p.xerrorf(ErrUnexpectedChar, "missing space before list")
			}
		default:
			p.xerrorf(ErrUnexpectedChar, "%q after %s", b, kind(v))
		}
	}
}

// Quoted string, "quoted" in RFC 3501 formal syntax.
func (p *parser) xquoted() string {
	p.c.advance() // Opening dquote.
	var r []byte
	for {
		b, ok := p.c.advance()
		if !ok {
			p.xerrorf(ErrUnterminatedQuoted, "missing closing dquote")
		}
		switch b {
		case '"':
			return string(r)
		case '\\':
			e, ok := p.c.advance()
			if !ok {
				p.xerrorf(ErrUnterminatedQuoted, "missing closing dquote after backslash")
			} else if e != '"' && e != '\\' {
				p.xerrorAtf(p.c.o-1, ErrBadQuoted, "invalid escape %q", e)
			}
			b = e
		case '\x00', '\r', '\n':
			p.xerrorAtf(p.c.o-1, ErrBadQuoted, "%q not allowed, use a literal", b)
		}
		r = append(r, b)
	}
}

// Literal, "{n}" CRLF followed by n bytes.
func (p *parser) xliteral() string {
	p.c.advance() // Opening brace.
	start := p.c.o
	for {
		b, ok := p.c.advance()
		if !ok {
			p.xerrorf(ErrLiteralHeader, "missing closing brace")
		}
		if b == '}' {
			break
		}
		if b < '0' || b > '9' {
			p.xerrorAtf(p.c.o-1, ErrLiteralHeader, "non-digit %q in literal size", b)
		}
	}
	digits := p.c.s[start : p.c.o-1]
	if digits == "" {
		p.xerrorf(ErrLiteralHeader, "empty literal size")
	}
	size, err := strconv.ParseUint(digits, 10, 63)
	if err != nil {
		p.xerrorf(ErrLiteralHeader, "literal size %q: %v", digits, err)
	}
	if p.c.read(2) != "\r\n" {
		p.xerrorf(ErrLiteralHeader, "missing crlf after literal size")
	}
	if size > uint64(p.c.remaining()) {
		got := len(p.c.rest())
		p.xerrorf(ErrLiteralTruncated, "literal of %d bytes incomplete, only %d bytes left", size, got)
	}
	return p.c.read(int(size))
}

func (p *parser) xlist() List {
	p.c.advance() // Opening paren.
	p.xnest()
	defer p.unnest()

	l := p.xsequence(')')
	if b, ok := p.c.advance(); !ok || b != ')' {
		p.xerrorf(ErrUnterminatedList, "missing closing paren")
	}
	return List(l)
}

// xatom reads an atom, or an attribute specifier if a "[" is encountered.
// Numbers and NIL are returned as atoms.
func (p *parser) xatom() Value {
	start := p.c.o
	for {
		b, ok := p.c.peek()
		if !ok || !isAtomChar(b) {
			return Atom(p.c.s[start:p.c.o])
		}
		p.c.advance()
		if b == '[' {
			return p.xattributeSpec(p.c.s[start : p.c.o-1])
		}
	}
}

// xattributeSpec reads the remainder of an attribute specifier, after the "[".
func (p *parser) xattributeSpec(primary string) *AttributeSpec {
	p.xnest()
	defer p.unnest()

	spec := &AttributeSpec{Primary: primary}
	b, ok := p.c.peek()
	if !ok {
		p.xerrorf(ErrUnterminatedSpec, "missing closing bracket")
	}
	if b != ']' {
		if !isAtomChar(b) {
			p.xerrorf(ErrUnterminatedSpec, "expected section or closing bracket, got %q", b)
		}
		spec.MsgText = p.xatom()

		if b, ok := p.c.peek(); ok && b == ' ' {
			p.c.advance()
			if b, ok := p.c.peek(); !ok || b != '(' {
				p.xerrorf(ErrUnterminatedSpec, "expected header list after space")
			}
			spec.HeaderList = p.xlist()
			for _, v := range spec.HeaderList {
				switch v.(type) {
				case Atom, Str:
				default:
					p.xerrorf(ErrUnterminatedSpec, "header list with %s, expected header field names", kind(v))
				}
			}
		}
	}
	if b, ok := p.c.advance(); !ok || b != ']' {
		p.xerrorf(ErrUnterminatedSpec, "missing closing bracket")
	}

	if b, ok := p.c.peek(); ok && b == '<' {
		r, isAtom := p.xatom().(Atom)
		if !isAtom || len(r) < 3 || r[len(r)-1] != '>' {
			p.xerrorf(ErrUnterminatedSpec, "malformed partial range")
		}
		spec.Range = r
	}
	return spec
}

func (p *parser) xflag() Flag {
	p.c.advance() // Backslash.
	b, ok := p.c.peek()
	if ok && b == '*' {
		// "\*" in PERMANENTFLAGS, RFC 3501 flag-perm.
		p.c.advance()
		return Flag("*")
	}
	if !ok || !isAtomChar(b) {
		p.xerrorf(ErrUnexpectedChar, "missing flag name after backslash")
	}
	a, ok := p.xatom().(Atom)
	if !ok {
		p.xerrorf(ErrUnexpectedChar, "flag with section")
	}
	return Flag(a)
}
