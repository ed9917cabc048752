/*
Package imapparse decodes the textual grammar of IMAP4 server responses into a
tree of typed values.

Input is a single, complete response as assembled by a transport: the bytes of
any literals, announced with {n}, must already follow their CRLF inline. See
package imapio for a reader that assembles such responses from a connection.

Parsing yields a sequence of [Value]s: [Atom], [Flag], [Str], [List] and
[*AttributeSpec]. The parser does not interpret atoms. NIL and numbers are
returned as atoms, and are interpreted by the caller that knows what kind of
field it is looking at, with [AString], [NString] and [Number].

A quoted string and a literal with the same content both parse into the same
Str. A Str is never equal to an Atom with the same text, so callers can tell
the NIL sentinel apart from the string "NIL".

Parsing is purely computational and keeps no shared state, so parses may run
concurrently.
*/
package imapparse
