package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/mjl-/imapdecode/imapio"
	"github.com/mjl-/imapdecode/imapparse"
	"github.com/mjl-/imapdecode/mlog"
	"github.com/mjl-/imapdecode/transcript"
)

var ctxbg = context.Background()

func tcheckf(t *testing.T, err error, format string, args ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", fmt.Sprintf(format, args...), err)
	}
}

func TestCommandsGather(t *testing.T) {
	for _, c := range cmds {
		c.gather()
		if c.help == "" {
			t.Fatalf("command %q without help", strings.Join(c.words, " "))
		}
	}
}

func TestPrintValue(t *testing.T) {
	l, err := imapparse.Parse(`12 FETCH (FLAGS (\Seen) BODY[HEADER.FIELDS (SUBJECT)]<0.10> {3}` + "\r\nabc" + ` NIL)`)
	tcheckf(t, err, "parse")

	var b strings.Builder
	for _, v := range l {
		printValue(&b, v, "")
	}
	exp := `atom 12
atom FETCH
list (5)
	atom FLAGS
	list (1)
		flag Seen
	spec BODY
		msgtext
			atom HEADER.FIELDS
		headers
			list (1)
				atom SUBJECT
		range <0.10>
	string "abc"
	nil
`
	if got := b.String(); got != exp {
		t.Fatalf("got:\n%s\nexpected:\n%s", got, exp)
	}
}

func TestReadInput(t *testing.T) {
	s, err := readInput([]string{"a", "(b)"}, nil)
	tcheckf(t, err, "args")
	if s != "a (b)" {
		t.Fatalf("got %q", s)
	}

	s, err = readInput(nil, strings.NewReader("* 1 FETCH (BODY[] {2}\r\n\r\n)\r\n"))
	tcheckf(t, err, "stdin")
	if s != "* 1 FETCH (BODY[] {2}\r\n\r\n)" {
		t.Fatalf("got %q", s)
	}
}

func TestDecodeStream(t *testing.T) {
	os.RemoveAll("testdata/decode")
	db, err := transcript.Open(ctxbg, filepath.FromSlash("testdata/decode/transcript.db"))
	tcheckf(t, err, "open transcript")
	defer db.Close()

	input := "* OK [CAPABILITY IMAP4rev1] ready\r\n" +
		"* LIST () \".\" {5}\r\nINBOX\r\n" +
		"* FLAGS (\\Seen\r\n" +
		"a1 OK LIST completed\r\n"
	var out strings.Builder
	log := mlog.New("decode", nil)
	n, failed, err := decodeStream(ctxbg, log, strings.NewReader(input), &out, db, imapio.Opts{})
	tcheckf(t, err, "decode")
	if n != 4 || failed != 1 {
		t.Fatalf("got %d responses, %d failed, expected 4 and 1", n, failed)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, expected 4: %q", len(lines), out.String())
	}
	if lines[0] != "* OK [CAPABILITY IMAP4rev1] ready" {
		t.Fatalf("line 0: %q", lines[0])
	}
	if lines[1] != `* LIST () "." "INBOX"` {
		t.Fatalf("line 1: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "error list: ") {
		t.Fatalf("line 2: %q", lines[2])
	}
	if lines[3] != "a1 OK LIST completed" {
		t.Fatalf("line 3: %q", lines[3])
	}

	counts, err := db.Counts(ctxbg)
	tcheckf(t, err, "counts")
	if counts["ok"] != 3 || counts["list"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestBuildVersion(t *testing.T) {
	test := func(version string, settings map[string]string, exp string) {
		t.Helper()
		bi := &debug.BuildInfo{Main: debug.Module{Version: version}}
		for k, v := range settings {
			bi.Settings = append(bi.Settings, debug.BuildSetting{Key: k, Value: v})
		}
		if got := buildVersion(bi); got != exp {
			t.Fatalf("got %q, expected %q", got, exp)
		}
	}

	test("v0.1.0", nil, "v0.1.0")
	test("(devel)", nil, "(devel)")
	test("(devel)", map[string]string{"vcs.revision": "abc"}, "abc+unknown")
	test("(devel)", map[string]string{"vcs.revision": "abc", "vcs.modified": "false"}, "abc")
	test("(devel)", map[string]string{"vcs.revision": "abc", "vcs.modified": "true"}, "abc+modifications")
}
