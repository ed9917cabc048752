package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjl-/imapdecode/imapio"
	"github.com/mjl-/imapdecode/mlog"
	"github.com/mjl-/imapdecode/transcript"
)

func cmdDecode(c *cmd) {
	c.params = "[-record] [-metrics addr] [file]"
	c.help = `Decodes a stream of server responses.

Responses are read from the file, or stdin, as sent by an IMAP server: one per
line, with literals announced by {n} at the end of a line. Each response is
printed in canonical form, prefixed by its tag. Responses that cannot be decoded
are printed with their error, and decoding continues with the next response.

With -record, each response is stored in the transcript database, for
inspection with the "transcript" subcommands. With -metrics, Prometheus metrics
are served on the address at /metrics while decoding, and until interrupted
afterwards.

The exit status is 1 if any response failed to decode.
`
	var record bool
	var metricsAddr string
	c.flag.BoolVar(&record, "record", false, "store responses in the transcript database")
	c.flag.StringVar(&metricsAddr, "metrics", "", "address to serve prometheus metrics on, overrides the configuration file")
	args := c.Parse()
	if len(args) > 1 {
		c.Usage()
	}
	mustLoadConfig()
	if metricsAddr == "" {
		metricsAddr = conf.MetricsListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		xcheckf(err, "open")
		defer f.Close()
		r = f
	}

	if metricsAddr != "" {
		serveMetrics(c.log, metricsAddr)
	}

	var db *transcript.DB
	if record {
		var err error
		db, err = transcript.Open(ctx, conf.TranscriptDB)
		xcheckf(err, "open transcript database")
		defer func() {
			err := db.Close()
			c.log.Check(err, "closing transcript database")
		}()
	}

	opts := imapio.Opts{
		MaxDepth:        conf.MaxDepth,
		MaxLineSize:     conf.MaxLineSize,
		MaxLiteralSize:  conf.MaxLiteralSize,
		MaxResponseSize: conf.MaxResponseSize,
	}
	n, failed, err := decodeStream(ctx, c.log, r, os.Stdout, db, opts)
	c.log.Info("decoded responses", slog.Int("responses", n), slog.Int("failed", failed))
	xcheckf(err, "decoding")

	if metricsAddr != "" {
		c.log.Info("done, still serving metrics until interrupted")
		<-ctx.Done()
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// serveMetrics serves prometheus metrics in the background.
func serveMetrics(log mlog.Log, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       65 * time.Second,
	}
	log.Info("serving metrics", slog.String("addr", addr))
	go func() {
		err := srv.ListenAndServe()
		log.Fatalx("serving metrics", err, slog.String("addr", addr))
	}()
}

// decodeStream decodes responses from r until the end of the input, writing a
// line per response to w and recording them in db if not nil. Only errors
// from reading, writing or storing are returned, responses that fail to decode
// are counted in failed.
func decodeStream(ctx context.Context, log mlog.Log, r io.Reader, w io.Writer, db *transcript.DB, opts imapio.Opts) (n, failed int, rerr error) {
	opts.Logger = log.Logger
	d := imapio.NewDecoder(r, opts)
	for {
		resp, err := d.Next(ctx)
		if err == io.EOF {
			return n, failed, nil
		}
		var respErr *imapio.ResponseError
		if err != nil && !errors.As(err, &respErr) {
			return n, failed, err
		}
		n++

		if err != nil {
			failed++
			_, xerr := fmt.Fprintf(w, "error %s: %v\n", imapio.ErrorClass(err), err)
			if xerr != nil {
				return n, failed, xerr
			}
		} else {
			if _, err := fmt.Fprintf(w, "%s %s\n", resp.Tag, transcript.Decoded(resp)); err != nil {
				return n, failed, err
			}
		}

		if db != nil {
			rec, xerr := db.Add(ctx, resp, err)
			if xerr != nil {
				return n, failed, xerr
			}
			log.Debug("recorded response", slog.Int64("id", rec.ID))
		}
	}
}

func cmdTranscriptList(c *cmd) {
	c.params = "[-failed] [-limit n]"
	c.help = `Lists responses from the transcript database, most recent first.

For each response, the ID, time received, class and the raw response are
printed. The class is "ok" for responses that were decoded. Use "transcript get"
to print all details of a response.
`
	var failed bool
	var limit int
	c.flag.BoolVar(&failed, "failed", false, "only list responses that could not be decoded")
	c.flag.IntVar(&limit, "limit", 100, "maximum number of responses to list, 0 for all")
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	mustLoadConfig()

	ctx := context.Background()
	db, err := transcript.Open(ctx, conf.TranscriptDB)
	xcheckf(err, "open transcript database")
	defer db.Close()

	l, err := db.List(ctx, failed, limit)
	xcheckf(err, "listing responses")
	for _, r := range l {
		fmt.Printf("%d\t%s\t%s\t%q\n", r.ID, r.Received.Format(time.RFC3339), r.Class, truncate(r.Raw, 80))
	}
	counts, err := db.Counts(ctx)
	xcheckf(err, "counting responses")
	var total int
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(os.Stderr, "%d responses in database, %d decoded\n", total, counts["ok"])
}

func cmdTranscriptGet(c *cmd) {
	c.params = "id"
	c.help = `Prints a response from the transcript database.

The raw response is printed, followed by its canonical form or the error from
decoding.
`
	args := c.Parse()
	if len(args) != 1 {
		c.Usage()
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	xcheckf(err, "parsing id")
	mustLoadConfig()

	ctx := context.Background()
	db, err := transcript.Open(ctx, conf.TranscriptDB)
	xcheckf(err, "open transcript database")
	defer db.Close()

	r, err := db.Get(ctx, id)
	xcheckf(err, "get response")
	fmt.Printf("id: %d\nreceived: %s\ntag: %s\nkind: %s\nclass: %s\n", r.ID, r.Received.Format(time.RFC3339), r.Tag, r.Kind, r.Class)
	fmt.Printf("raw: %q\n", r.Raw)
	if r.Error != "" {
		fmt.Printf("error: %s\n", r.Error)
	} else {
		fmt.Printf("decoded: %s\n", r.Decoded)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
