package mlog

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLog(t *testing.T) {
	var b strings.Builder
	h := &handler{w: &b, mu: &sync.Mutex{}, pkg: "test"}
	log := Log{slog.New(h).With(slog.String("pkg", "test"))}

	SetConfig(map[string]slog.Level{"": LevelError, "test": LevelDebug})
	defer SetConfig(map[string]slog.Level{"": LevelError})

	log.Debugx("parse failed", errors.New("bad syntax"), slog.Int("offset", 3))
	log.Trace(LevelTrace, "S: ", []byte("* OK hi"))
	log.Check(nil, "not logged")

	exp := "l=debug m=\"parse failed\" pkg=test err=\"bad syntax\" offset=3\n"
	if got := b.String(); got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}

	b.Reset()
	SetConfig(map[string]slog.Level{"": LevelError, "test": LevelTrace})
	log.Trace(LevelTracedata, "S: ", []byte("literal data"))
	exp = "l=trace m=\"S: ...\" pkg=test size=12\n"
	if got := b.String(); got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}

	b.Reset()
	SetConfig(map[string]slog.Level{"": LevelDebug})
	log.WithCid(10).Info("decoded")
	exp = "l=info m=decoded pkg=test cid=10\n"
	if got := b.String(); got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}
}

func TestNewFromLogger(t *testing.T) {
	var b strings.Builder
	parent := New("decode", slog.New(&handler{w: &b, mu: &sync.Mutex{}, pkg: "decode"}))
	log := New("imapio", parent.Logger)

	SetConfig(map[string]slog.Level{"": LevelError, "imapio": LevelTrace})
	defer SetConfig(map[string]slog.Level{"": LevelError})

	parent.Debug("not logged")
	log.Trace(LevelTrace, "S: ", []byte("* OK"))
	exp := "l=trace m=\"S: * OK\" pkg=imapio\n"
	if got := b.String(); got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}

	b.Reset()
	SetConfig(map[string]slog.Level{"": LevelError, "decode": LevelDebug})
	log.Debug("not logged")
	parent.WithCid(1).Debug("logged")
	exp = "l=debug m=logged pkg=decode cid=1\n"
	if got := b.String(); got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}
}
