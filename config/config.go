package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mjl-/sconf"

	"github.com/mjl-/imapdecode/mlog"
)

// Config is the parsed form of the imapdecode.conf configuration file.
type Config struct {
	LogLevel         string            `sconf-doc:"NOTE: This config file is in 'sconf' format. Indent with tabs. Comments must be on their own line, they don't end a line. Do not escape or quote strings. Details: https://pkg.go.dev/github.com/mjl-/sconf.\n\n\nDefault log level, one of: error, info, debug, trace, tracedata. Trace logs the raw responses as read, tracedata also the data of large reads."`
	PackageLogLevels map[string]string `sconf:"optional" sconf-doc:"Overrides of log level per package (e.g. imapio, metrics, transcript)."`
	MaxDepth         int               `sconf:"optional" sconf-doc:"Maximum nesting of lists and attribute specifiers in a response. Default 1024. Use -1 for no limit, only for trusted input."`
	MaxLineSize      int               `sconf:"optional" sconf-doc:"Maximum length of a line of a response, in bytes, excluding literals. Default 65536."`
	MaxLiteralSize   int64             `sconf:"optional" sconf-doc:"Maximum size of a literal in a response, in bytes. Default 104857600 (100MB)."`
	MaxResponseSize  int64             `sconf:"optional" sconf-doc:"Maximum size of a response with all its lines and literals, in bytes. Default 268435456 (256MB)."`
	TranscriptDB     string            `sconf:"optional" sconf-doc:"Path to the database for recording decoded responses, used by decode -record and the transcript subcommands. Default transcript.db."`
	MetricsListen    string            `sconf:"optional" sconf-doc:"Address to serve Prometheus metrics on at /metrics while decoding, e.g. localhost:8010. Default none."`

	// Parsed from LogLevel and PackageLogLevels, for mlog.SetConfig.
	Log map[string]slog.Level `sconf:"-" json:"-"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	c := Config{
		LogLevel:     "info",
		TranscriptDB: "transcript.db",
	}
	if err := c.prepare(); err != nil {
		panic(err)
	}
	return c
}

// Load reads and checks the configuration file at path.
func Load(path string) (Config, error) {
	var c Config
	if err := sconf.ParseFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %v", path, err)
	}
	if err := c.prepare(); err != nil {
		return Config{}, fmt.Errorf("checking %s: %v", path, err)
	}
	return c, nil
}

// Parse reads and checks configuration from a string, e.g. for tests.
func Parse(s string) (Config, error) {
	var c Config
	if err := sconf.Parse(strings.NewReader(s), &c); err != nil {
		return Config{}, err
	}
	if err := c.prepare(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) prepare() error {
	var errs []string
	addErrorf := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	c.Log = map[string]slog.Level{}
	if level, ok := mlog.Levels[c.LogLevel]; ok {
		c.Log[""] = level
	} else {
		addErrorf("invalid log level %q", c.LogLevel)
	}
	for pkg, s := range c.PackageLogLevels {
		if level, ok := mlog.Levels[s]; ok {
			c.Log[pkg] = level
		} else {
			addErrorf("invalid package log level %q for %q", s, pkg)
		}
	}
	if c.MaxDepth < -1 {
		addErrorf("max depth must be -1 or higher")
	}
	if c.MaxLineSize < 0 {
		addErrorf("max line size cannot be negative")
	}
	if c.MaxLiteralSize < 0 {
		addErrorf("max literal size cannot be negative")
	}
	if c.MaxResponseSize < 0 {
		addErrorf("max response size cannot be negative")
	}
	if c.TranscriptDB == "" {
		c.TranscriptDB = "transcript.db"
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Describe writes an annotated configuration file with the current values.
func Describe(c Config) error {
	return sconf.Describe(os.Stdout, c)
}
