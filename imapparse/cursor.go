package imapparse

// cursor reads through a string, with one byte of lookahead. Offset o is always
// between 0 and len(s) inclusive.
type cursor struct {
	s string
	o int
}

func (c *cursor) empty() bool {
	return c.o >= len(c.s)
}

// peek returns the next byte without consuming it. False is returned at the end
// of the input.
func (c *cursor) peek() (byte, bool) {
	if c.empty() {
		return 0, false
	}
	return c.s[c.o], true
}

// advance consumes and returns the next byte. False is returned at the end of
// the input, in which case nothing is consumed.
func (c *cursor) advance() (byte, bool) {
	if c.empty() {
		return 0, false
	}
	b := c.s[c.o]
	c.o++
	return b, true
}

// read consumes up to n bytes and returns them. Fewer bytes are returned if the
// input is shorter, callers that need exactly n bytes must check the length.
func (c *cursor) read(n int) string {
	if n < 0 {
		n = 0
	}
	if remain := len(c.s) - c.o; n > remain {
		n = remain
	}
	r := c.s[c.o : c.o+n]
	c.o += n
	return r
}

// rest consumes and returns all remaining bytes.
func (c *cursor) rest() string {
	r := c.s[c.o:]
	c.o = len(c.s)
	return r
}

// remaining returns the number of bytes left.
func (c *cursor) remaining() int {
	return len(c.s) - c.o
}
