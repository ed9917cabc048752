package imapio

import (
	"io"

	"github.com/mjl-/imapdecode/mlog"
)

// TraceReader logs all data read from the underlying reader at level trace.
type TraceReader struct {
	log    mlog.Log
	prefix string
	r      io.Reader
}

// NewTraceReader wraps reader "r" into a reader that logs all reads to "log"
// with log level trace, prefixed with "prefix".
func NewTraceReader(log mlog.Log, prefix string, r io.Reader) *TraceReader {
	return &TraceReader{log, prefix, r}
}

// Read does a single Read on its underlying reader, logs data of successful
// reads, and returns the data read.
func (r *TraceReader) Read(buf []byte) (int, error) {
	n, err := r.r.Read(buf)
	if n > 0 {
		r.log.Trace(mlog.LevelTrace, r.prefix, buf[:n])
	}
	return n, err
}
