/*
Command imapdecode parses IMAP4 server responses into typed values.

Responses can be given as arguments, read from stdin, or streamed from a file
with the responses of a session. Decoded responses can be recorded in a
transcript database for later inspection, and Prometheus metrics about decoding
can be served while running.

	imapdecode [-config imapdecode.conf] [-loglevel level] ...
	imapdecode parse [-depth n] [-tag] [response]
	imapdecode format [response]
	imapdecode bodystructure [text]
	imapdecode decode [-record] [-metrics addr] [file]
	imapdecode transcript list [-failed] [-limit n]
	imapdecode transcript get id
	imapdecode config describe >imapdecode.conf
	imapdecode config test [file]
	imapdecode version
	imapdecode help [command ...]

Run "imapdecode help command" for details about a command. See package config
for the configuration file.
*/
package main
