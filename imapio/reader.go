// Package imapio reads IMAP responses from a connection or transcript, and
// decodes them with package imapparse.
//
// A response is one line, except when it contains literals: a line ending in
// {n} is followed by n bytes of literal data and then the remainder of the
// response on the next line. ResponseReader assembles these parts into a single
// string with the literal data inline, as imapparse expects.
package imapio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrLineTooLong      = errors.New("line too long")      // Returned by ReadResponse.
	ErrLiteralTooLarge  = errors.New("literal too large")  // Returned by ReadResponse.
	ErrResponseTooLarge = errors.New("response too large") // Returned by ReadResponse.
)

// Defaults for limits of zero.
const (
	DefaultMaxLineSize     = 64 * 1024
	DefaultMaxLiteralSize  = 100 * 1024 * 1024
	DefaultMaxResponseSize = 256 * 1024 * 1024
)

// ResponseReader reads complete responses, including literals.
type ResponseReader struct {
	r               *bufio.Reader
	maxLineSize     int
	maxLiteralSize  int64
	maxResponseSize int64
}

// NewResponseReader returns a reader for responses from r. The limits apply to
// each line and each literal of a response separately, maxResponseSize limits
// the response as a whole, with all its lines and literals. Exceeding a limit
// results in an error, zero values select the defaults.
func NewResponseReader(r io.Reader, maxLineSize int, maxLiteralSize, maxResponseSize int64) *ResponseReader {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	if maxLiteralSize <= 0 {
		maxLiteralSize = DefaultMaxLiteralSize
	}
	if maxResponseSize <= 0 {
		maxResponseSize = DefaultMaxResponseSize
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ResponseReader{br, maxLineSize, maxLiteralSize, maxResponseSize}
}

// ReadResponse reads the next response. The CRLF ending the response is not
// included, the CRLF following the size of a literal is.
//
// io.EOF is returned if the input ends cleanly before a response. If it ends in
// the middle of a response, io.ErrUnexpectedEOF is returned.
func (r *ResponseReader) ReadResponse() (string, error) {
	var b strings.Builder
	for {
		line, err := r.readline(b.Len() == 0)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		if int64(b.Len()) > r.maxResponseSize {
			return "", fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, r.maxResponseSize)
		}

		size, ok := literalSize(line)
		if !ok {
			return b.String(), nil
		}
		if size > r.maxLiteralSize {
			return "", fmt.Errorf("%w: %d bytes, max %d", ErrLiteralTooLarge, size, r.maxLiteralSize)
		}
		if int64(b.Len())+2+size > r.maxResponseSize {
			return "", fmt.Errorf("%w: literal of %d bytes after %d bytes, max %d", ErrResponseTooLarge, size, b.Len(), r.maxResponseSize)
		}
		b.WriteString("\r\n")
		if _, err := io.CopyN(&b, r.r, size); err == io.EOF {
			return "", io.ErrUnexpectedEOF
		} else if err != nil {
			return "", fmt.Errorf("reading literal: %w", err)
		}
	}
}

// readline reads a \n- or \r\n-terminated line, returned without the line
// ending.
func (r *ResponseReader) readline(first bool) (string, error) {
	var buf []byte
	for {
		c, err := r.r.ReadByte()
		if err == io.EOF {
			if first && len(buf) == 0 {
				return "", io.EOF
			}
			return "", io.ErrUnexpectedEOF
		} else if err != nil {
			return "", fmt.Errorf("reading line: %w", err)
		}
		if c == '\n' {
			if n := len(buf); n > 0 && buf[n-1] == '\r' {
				buf = buf[:n-1]
			}
			return string(buf), nil
		}
		if len(buf) >= r.maxLineSize {
			return "", fmt.Errorf("%w: no newline after all %d bytes", ErrLineTooLong, len(buf))
		}
		buf = append(buf, c)
	}
}

// literalSize returns the size of the literal announced at the end of line,
// for lines ending in {n}.
func literalSize(line string) (int64, bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	i := strings.LastIndexByte(line, '{')
	if i < 0 || i+2 > len(line)-1 {
		return 0, false
	}
	digits := line[i+1 : len(line)-1]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	size, err := strconv.ParseInt(digits, 10, 63)
	if err != nil {
		return 0, false
	}
	return size, true
}
