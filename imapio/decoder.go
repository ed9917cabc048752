package imapio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mjl-/imapdecode/imapparse"
	"github.com/mjl-/imapdecode/metrics"
	"github.com/mjl-/imapdecode/mlog"
)

var (
	ErrMissingTag    = errors.New("missing tag")                    // Response does not start with a tag.
	ErrMissingStatus = errors.New("tagged response without status") // Tagged response is not OK, NO or BAD.
)

// Response is a decoded response. Tags are not correlated with commands.
type Response struct {
	// "*" for untagged responses, "+" for continuation requests, otherwise the tag
	// of the command that completed.
	Tag string

	// Parsed data following the tag. For status responses (OK, NO, BAD, BYE,
	// PREAUTH) only the status atom, followed by the human-readable text in Text.
	Values []imapparse.Value

	// Response code for status responses, the parsed contents between "[" and "]",
	// e.g. UIDVALIDITY 1. Nil if absent.
	Code []imapparse.Value

	// Human-readable text of status responses and continuation requests. Not
	// parsed.
	Text string

	Raw string // Response as read, with literals, without the final CRLF.
}

// Kind returns "untagged", "continuation" or "tagged".
func (r Response) Kind() string {
	switch r.Tag {
	case "*":
		return "untagged"
	case "+":
		return "continuation"
	}
	return "tagged"
}

// Status returns the status of a status response, e.g. "OK", or the empty
// string.
func (r Response) Status() string {
	if len(r.Values) == 1 && r.Tag != "+" {
		if a, ok := r.Values[0].(imapparse.Atom); ok && isStatus(string(a)) {
			return strings.ToUpper(string(a))
		}
	}
	return ""
}

func isStatus(s string) bool {
	switch strings.ToUpper(s) {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
		return true
	}
	return false
}

// ResponseError is returned by Decoder.Next for a response that was read but
// could not be decoded. Such errors are not recoverable for the response, but
// the next response can be read.
type ResponseError struct {
	Raw string
	Err error // Often an *imapparse.Error.
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("decoding response: %v", e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// ErrorClass returns a short name for the class of err, for use in metrics and
// the transcript: "ok" for a nil error, e.g. "quoted" or "literal" for syntax
// errors, "toolong" for exceeded limits and "read" for other errors.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, imapparse.ErrUnterminatedQuoted), errors.Is(err, imapparse.ErrBadQuoted):
		return "quoted"
	case errors.Is(err, imapparse.ErrLiteralHeader), errors.Is(err, imapparse.ErrLiteralTruncated):
		return "literal"
	case errors.Is(err, imapparse.ErrUnterminatedList):
		return "list"
	case errors.Is(err, imapparse.ErrUnterminatedSpec):
		return "spec"
	case errors.Is(err, imapparse.ErrUnexpectedChar):
		return "char"
	case errors.Is(err, imapparse.ErrNesting):
		return "nesting"
	case errors.Is(err, imapparse.ErrTooDeep):
		return "depth"
	case errors.Is(err, ErrMissingTag), errors.Is(err, ErrMissingStatus):
		return "tag"
	case errors.Is(err, ErrLineTooLong), errors.Is(err, ErrLiteralTooLarge), errors.Is(err, ErrResponseTooLarge):
		return "toolong"
	}
	return "read"
}

// Opts are optional settings for a Decoder.
type Opts struct {
	MaxDepth        int   // See imapparse.Parser.MaxDepth.
	MaxLineSize     int   // Zero for DefaultMaxLineSize.
	MaxLiteralSize  int64 // Zero for DefaultMaxLiteralSize.
	MaxResponseSize int64 // Zero for DefaultMaxResponseSize.
	Logger          *slog.Logger
}

// Decoder reads and decodes responses. A Decoder is not safe for concurrent use.
type Decoder struct {
	rr     *ResponseReader
	parser imapparse.Parser
	log    mlog.Log
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader, opts Opts) *Decoder {
	log := mlog.New("imapio", opts.Logger)
	tr := NewTraceReader(log, "S: ", r)
	return &Decoder{
		rr:     NewResponseReader(tr, opts.MaxLineSize, opts.MaxLiteralSize, opts.MaxResponseSize),
		parser: imapparse.Parser{MaxDepth: opts.MaxDepth},
		log:    log,
	}
}

// Next reads and decodes the next response. At the end of the input, io.EOF is
// returned. A response that was read but could not be decoded results in a
// *ResponseError, and decoding can continue with the next response. Other
// errors are from reading, and should be treated as fatal for the connection.
func (d *Decoder) Next(ctx context.Context) (resp Response, rerr error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	log := d.log.WithContext(ctx)

	raw, err := d.rr.ReadResponse()
	if err == io.EOF {
		return Response{}, err
	} else if err != nil {
		metrics.ResponseObserve(ctx, "none", ErrorClass(err), 0, time.Now())
		return Response{}, err
	}

	start := time.Now()
	defer func() {
		x := recover()
		if x != nil {
			log.Error("unhandled panic decoding response", slog.Any("err", x))
			debug.PrintStack()
			metrics.PanicInc("imapio")
			resp = Response{}
			rerr = &ResponseError{raw, fmt.Errorf("panic: %v", x)}
		}
		metrics.ResponseObserve(ctx, resp.Kind(), ErrorClass(rerr), len(raw), start)
		if rerr != nil {
			log.Debugx("decoding response", rerr, slog.String("raw", raw))
		}
	}()

	resp, err = d.decode(raw)
	if err != nil {
		return Response{Tag: resp.Tag}, &ResponseError{raw, err}
	}
	return resp, nil
}

func (d *Decoder) decode(raw string) (Response, error) {
	r := Response{Raw: raw}
	tag, rest, _ := strings.Cut(raw, " ")
	if tag == "" {
		return r, ErrMissingTag
	}
	r.Tag = tag
	if tag == "+" {
		r.Text = rest
		return r, nil
	}

	word, text, _ := strings.Cut(rest, " ")
	if isStatus(word) {
		r.Values = []imapparse.Value{imapparse.Atom(word)}
		if strings.HasPrefix(text, "[") {
			l, after, err := d.parser.ParseCode(text)
			if err != nil {
				return r, fmt.Errorf("response code: %w", err)
			}
			r.Code = l
			text = strings.TrimPrefix(after, " ")
		}
		r.Text = text
		return r, nil
	}
	if tag != "*" {
		return r, ErrMissingStatus
	}

	l, err := d.parser.Parse(rest)
	if err != nil {
		return r, err
	}
	r.Values = l
	return r, nil
}
