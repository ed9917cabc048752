package transcript

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mjl-/imapdecode/imapio"
)

var ctxbg = context.Background()

func tcheckf(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", msg, err)
	}
}

func TestDB(t *testing.T) {
	os.RemoveAll("../testdata/transcript")
	db, err := Open(ctxbg, filepath.FromSlash("../testdata/transcript/transcript.db"))
	tcheckf(t, err, "open")
	defer func() {
		err := db.Close()
		tcheckf(t, err, "close")
	}()

	input := "* OK [UIDNEXT 4392] Predicted next UID\r\n" +
		"* 1 FETCH (UID 10 BODY[HEADER.FIELDS (SUBJECT)] {18}\r\nSubject: hello\r\n\r\n)\r\n" +
		"* 2 FETCH (UID {5x})\r\n" +
		"a1 OK done\r\n"
	d := imapio.NewDecoder(strings.NewReader(input), imapio.Opts{})
	for {
		resp, err := d.Next(ctxbg)
		if err == io.EOF {
			break
		}
		var rerr *imapio.ResponseError
		if err != nil && !errors.As(err, &rerr) {
			t.Fatalf("next: %v", err)
		}
		_, err = db.Add(ctxbg, resp, err)
		tcheckf(t, err, "add")
	}

	all, err := db.List(ctxbg, false, 0)
	tcheckf(t, err, "list")
	if len(all) != 4 {
		t.Fatalf("got %d records, expected 4", len(all))
	}
	// Most recent first.
	if all[0].Tag != "a1" || all[0].Kind != "tagged" || all[0].Decoded != "OK done" {
		t.Fatalf("unexpected first record %#v", all[0])
	}
	if all[3].Decoded != `OK [UIDNEXT 4392] Predicted next UID` {
		t.Fatalf("unexpected last record %#v", all[3])
	}

	failed, err := db.List(ctxbg, true, 10)
	tcheckf(t, err, "list failed")
	if len(failed) != 1 || failed[0].Class != "literal" || failed[0].Error == "" || !strings.HasPrefix(failed[0].Raw, "* 2 FETCH") {
		t.Fatalf("unexpected failed records %#v", failed)
	}

	r, err := db.Get(ctxbg, failed[0].ID)
	tcheckf(t, err, "get")
	if r.Raw != failed[0].Raw {
		t.Fatalf("get: got %#v", r)
	}

	limited, err := db.List(ctxbg, false, 1)
	tcheckf(t, err, "list with limit")
	if len(limited) != 1 || limited[0].ID != all[0].ID {
		t.Fatalf("unexpected limited list %#v", limited)
	}

	counts, err := db.Counts(ctxbg)
	tcheckf(t, err, "counts")
	if counts["ok"] != 3 || counts["literal"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
