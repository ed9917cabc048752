/*
Package config holds the configuration file definition for imapdecode.

The configuration file is optional, defaults are used when it is absent. Fields
of its "empty" form are explained below, as printed by "imapdecode config
describe".

# sconf

The config file is in "sconf" format. Properties of sconf files:

  - Indentation with tabs only.
  - "#" as first non-whitespace character makes the line a comment. Lines with a
    value cannot also have a comment.
  - Values don't have syntax indicating their type. For example, strings are
    not quoted/escaped and can never span multiple lines.
  - Fields that are optional can be left out completely.

See https://pkg.go.dev/github.com/mjl-/sconf for details.

# imapdecode.conf

	# NOTE: This config file is in 'sconf' format. Indent with tabs. Comments must be
	# on their own line, they don't end a line. Do not escape or quote strings.
	# Details: https://pkg.go.dev/github.com/mjl-/sconf.


	# Default log level, one of: error, info, debug, trace, tracedata. Trace logs the
	# raw responses as read, tracedata also the data of large reads.
	LogLevel: info

	# Overrides of log level per package (e.g. imapio, metrics, transcript).
	# (optional)
	PackageLogLevels:
		x:

	# Maximum nesting of lists and attribute specifiers in a response. Default 1024.
	# Use -1 for no limit, only for trusted input. (optional)
	MaxDepth: 0

	# Maximum length of a line of a response, in bytes, excluding literals. Default
	# 65536. (optional)
	MaxLineSize: 0

	# Maximum size of a literal in a response, in bytes. Default 104857600 (100MB).
	# (optional)
	MaxLiteralSize: 0

	# Maximum size of a response with all its lines and literals, in bytes. Default
	# 268435456 (256MB). (optional)
	MaxResponseSize: 0

	# Path to the database for recording decoded responses, used by decode -record and
	# the transcript subcommands. Default transcript.db. (optional)
	TranscriptDB: transcript.db

	# Address to serve Prometheus metrics on at /metrics while decoding, e.g.
	# localhost:8010. Default none. (optional)
	MetricsListen:
*/
package config
