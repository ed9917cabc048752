// Package transcript stores decoded responses in a database, for inspecting
// response streams and the responses that failed to decode.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mjl-/bstore"

	"github.com/mjl-/imapdecode/imapio"
	"github.com/mjl-/imapdecode/imapparse"
	"github.com/mjl-/imapdecode/mlog"
)

var pkglog = mlog.New("transcript", nil)

// Record is a response as stored in the database.
type Record struct {
	ID       int64
	Received time.Time `bstore:"default now,index"`
	Tag      string    `bstore:"index"` // "*", "+" or a command tag, empty if unknown.
	Kind     string    // untagged, continuation, tagged.
	Raw      string    // Response as read, including literals.

	// Canonical re-encoding of the decoded values, and for status responses the
	// response code and text. Empty if decoding failed.
	Decoded string

	Class string `bstore:"index"` // "ok" or the class of error, see imapio.ErrorClass.
	Error string // Error message if decoding failed.
}

// DBTypes are the types stored in the database.
var DBTypes = []any{Record{}}

// DB is an opened transcript database.
type DB struct {
	db  *bstore.DB
	log mlog.Log
}

// Open opens the database at path, creating it if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	os.MkdirAll(filepath.Dir(path), 0770)
	db, err := bstore.Open(ctx, path, &bstore.Options{Timeout: 5 * time.Second, Perm: 0660}, DBTypes...)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}
	return &DB{db, pkglog.WithContext(ctx)}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Add stores a response and the result of decoding it. For a failed decode, err
// should be the *imapio.ResponseError returned by Decoder.Next.
func (d *DB) Add(ctx context.Context, resp imapio.Response, err error) (Record, error) {
	r := Record{
		Tag:   resp.Tag,
		Kind:  resp.Kind(),
		Raw:   resp.Raw,
		Class: imapio.ErrorClass(err),
	}
	var rerr *imapio.ResponseError
	if errors.As(err, &rerr) {
		r.Raw = rerr.Raw
	}
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Decoded = Decoded(resp)
	}
	if err := d.db.Insert(ctx, &r); err != nil {
		return Record{}, fmt.Errorf("inserting response: %w", err)
	}
	d.log.Debug("response recorded", slog.Int64("id", r.ID), slog.String("class", r.Class))
	return r, nil
}

// Decoded returns the canonical form of a decoded response.
func Decoded(resp imapio.Response) string {
	s := imapparse.Format(resp.Values)
	if resp.Code != nil {
		s += " [" + imapparse.Format(resp.Code) + "]"
	}
	if resp.Text != "" {
		if s != "" {
			s += " "
		}
		s += resp.Text
	}
	return s
}

// Get returns the record with id.
func (d *DB) Get(ctx context.Context, id int64) (Record, error) {
	r := Record{ID: id}
	err := d.db.Get(ctx, &r)
	return r, err
}

// List returns stored records, most recent first. If failed is set, only
// records that could not be decoded are returned. If limit is positive, at most
// limit records are returned.
func (d *DB) List(ctx context.Context, failed bool, limit int) ([]Record, error) {
	q := bstore.QueryDB[Record](ctx, d.db)
	if failed {
		q.FilterNotEqual("Class", "ok")
	}
	q.SortDesc("ID")
	if limit > 0 {
		q.Limit(limit)
	}
	return q.List()
}

// Counts returns the number of records per class.
func (d *DB) Counts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	err := bstore.QueryDB[Record](ctx, d.db).ForEach(func(r Record) error {
		counts[r.Class]++
		return nil
	})
	return counts, err
}
