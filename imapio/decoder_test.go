package imapio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/mjl-/imapdecode/imapparse"
	"github.com/mjl-/imapdecode/mlog"
)

var ctxbg = context.Background()

func tcheckf(t *testing.T, err error, format string, args ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", fmt.Sprintf(format, args...), err)
	}
}

func tcompare(t *testing.T, a, b any) {
	t.Helper()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("got:\n%#v\nexpected:\n%#v", a, b)
	}
}

func TestResponseReader(t *testing.T) {
	input := "* OK ready\r\n" +
		"* 1 FETCH (BODY[] {5}\r\nhello UID 1)\r\n" +
		"* 2 FETCH (BODY[HEADER] {2}\r\n\r\n BODY[TEXT] {0}\r\n)\n" +
		"a1 OK done\r\n"
	rr := NewResponseReader(strings.NewReader(input), 0, 0, 0)

	var l []string
	for {
		s, err := rr.ReadResponse()
		if err == io.EOF {
			break
		}
		tcheckf(t, err, "read response")
		l = append(l, s)
	}
	tcompare(t, l, []string{
		"* OK ready",
		"* 1 FETCH (BODY[] {5}\r\nhello UID 1)",
		"* 2 FETCH (BODY[HEADER] {2}\r\n\r\n BODY[TEXT] {0}\r\n)",
		"a1 OK done",
	})

	_, err := NewResponseReader(strings.NewReader("* 1 FETCH (BODY[] {10}\r\nshort"), 0, 0, 0).ReadResponse()
	tcompare(t, err, io.ErrUnexpectedEOF)

	_, err = NewResponseReader(strings.NewReader("* OK no newline"), 0, 0, 0).ReadResponse()
	tcompare(t, err, io.ErrUnexpectedEOF)

	_, err = NewResponseReader(strings.NewReader("* OK "+strings.Repeat("x", 100)+"\r\n"), 10, 0, 0).ReadResponse()
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("got err %v, expected ErrLineTooLong", err)
	}

	_, err = NewResponseReader(strings.NewReader("* 1 FETCH (BODY[] {11}\r\nhello world)\r\n"), 0, 10, 0).ReadResponse()
	if !errors.Is(err, ErrLiteralTooLarge) {
		t.Fatalf("got err %v, expected ErrLiteralTooLarge", err)
	}

	// Each literal is within its limit, but together they are not.
	input = "* 1 FETCH (A {4}\r\naaaa B {4}\r\nbbbb C {4}\r\ncccc)\r\n"
	_, err = NewResponseReader(strings.NewReader(input), 0, 4, 0).ReadResponse()
	tcheckf(t, err, "read response")
	_, err = NewResponseReader(strings.NewReader(input), 0, 4, 30).ReadResponse()
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("got err %v, expected ErrResponseTooLarge", err)
	}
	_, err = NewResponseReader(strings.NewReader("* OK "+strings.Repeat("x", 100)+"\r\n"), 0, 0, 50).ReadResponse()
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("got err %v, expected ErrResponseTooLarge", err)
	}
}

func TestDecoder(t *testing.T) {
	input := "* OK [UIDVALIDITY 3857529045] UIDs valid\r\n" +
		"* 172 EXISTS\r\n" +
		"* FLAGS (\\Answered \\Flagged \\Deleted \\Seen \\Draft)\r\n" +
		"* OK [PERMANENTFLAGS (\\Deleted \\Seen \\*)] Limited\r\n" +
		"* LIST (\\HasNoChildren) \"/\" INBOX\r\n" +
		"* 12 FETCH (UID 17 RFC822 {12}\r\nhello world! FLAGS (\\Deleted))\r\n" +
		"* 13 FETCH (UID \"unterminated)\r\n" +
		"+ go ahead\r\n" +
		"a2 NO [TRYCREATE] no such mailbox\r\n" +
		"a3 FETCH 1\r\n" +
		"a4 ok done\r\n" +
		"* NO [BADCHARSET (\"x]y\" {1}\r\n])] unsupported\r\n" +
		"* OK [ALERT no closing bracket\r\n"
	d := NewDecoder(strings.NewReader(input), Opts{})

	next := func(exp Response) {
		t.Helper()
		r, err := d.Next(ctxbg)
		tcheckf(t, err, "next")
		exp.Raw = r.Raw
		if r.Tag != exp.Tag || r.Text != exp.Text || !imapparse.EqualList(r.Values, exp.Values) || !imapparse.EqualList(r.Code, exp.Code) || (r.Code == nil) != (exp.Code == nil) {
			t.Fatalf("got:\n%#v\nexpected:\n%#v", r, exp)
		}
	}
	needErr := func(expErr error) {
		t.Helper()
		_, err := d.Next(ctxbg)
		var rerr *ResponseError
		if !errors.As(err, &rerr) || !errors.Is(err, expErr) {
			t.Fatalf("got err %v, expected *ResponseError with %v", err, expErr)
		}
	}

	next(Response{Tag: "*", Values: []imapparse.Value{imapparse.Atom("OK")}, Code: []imapparse.Value{imapparse.Atom("UIDVALIDITY"), imapparse.Atom("3857529045")}, Text: "UIDs valid"})
	next(Response{Tag: "*", Values: []imapparse.Value{imapparse.Atom("172"), imapparse.Atom("EXISTS")}})
	next(Response{Tag: "*", Values: []imapparse.Value{
		imapparse.Atom("FLAGS"),
		imapparse.List{imapparse.Flag("Answered"), imapparse.Flag("Flagged"), imapparse.Flag("Deleted"), imapparse.Flag("Seen"), imapparse.Flag("Draft")},
	}})
	next(Response{Tag: "*", Values: []imapparse.Value{imapparse.Atom("OK")}, Code: []imapparse.Value{
		imapparse.Atom("PERMANENTFLAGS"),
		imapparse.List{imapparse.Flag("Deleted"), imapparse.Flag("Seen"), imapparse.Flag("*")},
	}, Text: "Limited"})
	next(Response{Tag: "*", Values: []imapparse.Value{imapparse.Atom("LIST"), imapparse.List{imapparse.Flag("HasNoChildren")}, imapparse.Str("/"), imapparse.Atom("INBOX")}})
	next(Response{Tag: "*", Values: []imapparse.Value{
		imapparse.Atom("12"),
		imapparse.Atom("FETCH"),
		imapparse.List{imapparse.Atom("UID"), imapparse.Atom("17"), imapparse.Atom("RFC822"), imapparse.Str("hello world!"), imapparse.Atom("FLAGS"), imapparse.List{imapparse.Flag("Deleted")}},
	}})
	needErr(imapparse.ErrUnterminatedQuoted)
	next(Response{Tag: "+", Text: "go ahead"})
	next(Response{Tag: "a2", Values: []imapparse.Value{imapparse.Atom("NO")}, Code: []imapparse.Value{imapparse.Atom("TRYCREATE")}, Text: "no such mailbox"})
	needErr(ErrMissingStatus)

	r, err := d.Next(ctxbg)
	tcheckf(t, err, "next")
	tcompare(t, r.Status(), "OK")
	tcompare(t, r.Kind(), "tagged")

	// Brackets in strings and literals don't end a response code.
	next(Response{Tag: "*", Values: []imapparse.Value{imapparse.Atom("NO")}, Code: []imapparse.Value{
		imapparse.Atom("BADCHARSET"),
		imapparse.List{imapparse.Str("x]y"), imapparse.Str("]")},
	}, Text: "unsupported"})
	needErr(imapparse.ErrUnterminatedSpec)

	_, err = d.Next(ctxbg)
	tcompare(t, err, io.EOF)

	ctx, cancel := context.WithCancel(ctxbg)
	cancel()
	_, err = NewDecoder(strings.NewReader("* OK\r\n"), Opts{}).Next(ctx)
	tcompare(t, err, context.Canceled)
}

func TestErrorClass(t *testing.T) {
	_, err := imapparse.Parse("(a")
	tcompare(t, ErrorClass(err), "list")
	tcompare(t, ErrorClass(&ResponseError{"x", err}), "list")
	tcompare(t, ErrorClass(nil), "ok")
	tcompare(t, ErrorClass(fmt.Errorf("x: %w", ErrLineTooLong)), "toolong")
	tcompare(t, ErrorClass(fmt.Errorf("x: %w", ErrResponseTooLarge)), "toolong")
	tcompare(t, ErrorClass(io.ErrUnexpectedEOF), "read")
}

func TestTraceReader(t *testing.T) {
	var b strings.Builder
	logger := slog.New(slog.NewTextHandler(&b, &slog.HandlerOptions{Level: mlog.LevelTrace}))
	d := NewDecoder(strings.NewReader("* 1 EXISTS\r\n"), Opts{Logger: logger})
	_, err := d.Next(ctxbg)
	tcheckf(t, err, "next")
	if !strings.Contains(b.String(), `msg="S: * 1 EXISTS\r\n"`) {
		t.Fatalf("trace not logged, got %q", b.String())
	}
}
