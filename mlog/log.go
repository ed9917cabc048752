// Package mlog provides logging on top of log/slog, with log levels that can be
// configured per originating package.
//
// Each Log has a field "pkg", e.g. "imapio" or "transcript". The configured
// level for that package determines whether a line is written. The empty
// package name holds the default level. Configuration is global, all Log
// instances use the same levels.
//
// Log messages should be constant strings, variable data goes in attributes.
// The "x"-suffixed functions take an error, which is logged as attribute "err".
package mlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Levels in addition to those of slog. Trace is for protocol data, Tracedata
// for bulk data like literals.
const (
	LevelFatal     = slog.Level(12)
	LevelError     = slog.LevelError
	LevelInfo      = slog.LevelInfo
	LevelDebug     = slog.LevelDebug
	LevelTrace     = slog.Level(-8)
	LevelTracedata = slog.Level(-12)
)

// LevelStrings maps levels to their names in configuration and output.
var LevelStrings = map[slog.Level]string{
	LevelFatal:     "fatal",
	LevelError:     "error",
	LevelInfo:      "info",
	LevelDebug:     "debug",
	LevelTrace:     "trace",
	LevelTracedata: "tracedata",
}

// Levels maps level names to levels.
var Levels = map[string]slog.Level{
	"fatal":     LevelFatal,
	"error":     LevelError,
	"info":      LevelInfo,
	"debug":     LevelDebug,
	"trace":     LevelTrace,
	"tracedata": LevelTracedata,
}

// Holds a map[string]slog.Level, mapping a package to its level. The empty
// string is the fallback.
var config atomic.Value

func init() {
	config.Store(map[string]slog.Level{"": LevelError})
}

// SetConfig atomically sets the levels used by all Log instances.
func SetConfig(c map[string]slog.Level) {
	config.Store(c)
}

// CidKey can be used with context.WithValue to store a "cid" for logging, to
// correlate lines for a single operation.
type key string

var CidKey key = "cid"

// Log wraps a slog.Logger with helpers for errors and tracing.
type Log struct {
	*slog.Logger
}

// New returns a Log for package pkg. If logger is nil, lines are written to
// stderr, filtered by the levels from SetConfig. If logger is from another Log,
// lines are filtered by the level for pkg instead of that of the other Log.
func New(pkg string, logger *slog.Logger) Log {
	if logger == nil {
		logger = slog.New(&handler{w: os.Stderr, mu: &sync.Mutex{}, pkg: pkg})
	} else if h, ok := logger.Handler().(*handler); ok {
		nh := *h
		nh.pkg = pkg
		nh.attrs = nil
		for _, a := range h.attrs {
			if a.Key != "pkg" {
				nh.attrs = append(nh.attrs, a)
			}
		}
		logger = slog.New(&nh)
	}
	return Log{logger.With(slog.String("pkg", pkg))}
}

// WithCid returns a Log that adds field "cid".
func (l Log) WithCid(cid int64) Log {
	return Log{l.Logger.With(slog.Int64("cid", cid))}
}

// WithContext returns a Log that adds the cid from ctx, if any.
func (l Log) WithContext(ctx context.Context) Log {
	cid, ok := ctx.Value(CidKey).(int64)
	if !ok {
		return l
	}
	return l.WithCid(cid)
}

func (l Log) logx(level slog.Level, err error, msg string, attrs ...slog.Attr) {
	if !l.Enabled(context.Background(), level) {
		return
	}
	if err != nil {
		attrs = append([]slog.Attr{slog.Any("err", err)}, attrs...)
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l Log) Debugx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelDebug, err, msg, attrs...)
}

func (l Log) Infox(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelInfo, err, msg, attrs...)
}

func (l Log) Errorx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelError, err, msg, attrs...)
}

// Check logs err at level error if it is not nil. For cleanup functions
// where an error cannot be returned.
func (l Log) Check(err error, msg string, attrs ...slog.Attr) {
	if err != nil {
		l.Errorx(msg, err, attrs...)
	}
}

// Fatalx logs at level fatal and stops the program.
func (l Log) Fatalx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelFatal, err, msg, attrs...)
	os.Exit(1)
}

// Trace logs protocol data at a trace level. If the level is not enabled but a
// more verbose trace level is, a placeholder is logged instead of the data.
func (l Log) Trace(level slog.Level, prefix string, data []byte) {
	ctx := context.Background()
	if l.Enabled(ctx, level) {
		l.LogAttrs(ctx, level, prefix+string(data))
	} else if level < LevelTrace && l.Enabled(ctx, LevelTrace) {
		l.LogAttrs(ctx, LevelTrace, prefix+"...", slog.Int("size", len(data)))
	}
}

// handler writes logfmt lines, filtered by the configured level for its pkg.
type handler struct {
	w      io.Writer
	mu     *sync.Mutex
	pkg    string
	attrs  []slog.Attr
	groups []string
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= LevelFatal {
		return true
	}
	cl := config.Load().(map[string]slog.Level)
	if v, ok := cl[h.pkg]; ok {
		return level >= v
	}
	v, ok := cl[""]
	return ok && level >= v
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), h.grouped(attrs)...)
	return &nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = append(append([]string{}, h.groups...), name)
	return &nh
}

func (h *handler) grouped(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	prefix := strings.Join(h.groups, ".") + "."
	r := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		r[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return r
}

func (h *handler) Handle(ctx context.Context, rec slog.Record) error {
	// Build the whole line so it is written with a single write.
	b := &bytes.Buffer{}
	level, ok := LevelStrings[rec.Level]
	if !ok {
		level = strings.ToLower(rec.Level.String())
	}
	fmt.Fprintf(b, "l=%s m=%s", level, logfmtValue(rec.Message))
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		fmt.Fprintf(b, " %s=%s", a.Key, logfmtValue(stringValue(a.Value)))
	}
	for _, a := range h.attrs {
		write(a)
	}
	var attrs []slog.Attr
	rec.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	for _, a := range h.grouped(attrs) {
		write(a)
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(b.Bytes())
	return err
}

func stringValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindGroup:
		var l []string
		for _, a := range v.Group() {
			l = append(l, a.Key+"="+stringValue(a.Value))
		}
		return "[" + strings.Join(l, " ") + "]"
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return fmt.Sprintf("%v", v.Any())
}

// logfmtValue quotes s if required for logfmt.
func logfmtValue(s string) string {
	for _, c := range s {
		if c == '"' || c == '\\' || c <= ' ' || c == '=' || c >= 0x7f {
			return strconv.Quote(s)
		}
	}
	return s
}
