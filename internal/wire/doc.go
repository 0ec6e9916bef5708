// Package wire decodes (and, for tests, encodes) the two wire framings
// of the embedded user-tracing sublanguage carried inside UserMessage
// runtime events: a textual "ot2 ..." grammar (text.go) and a
// magic/tag-framed binary form (binary.go). Both converge on the same
// Op algebra (op.go) so internal/interpreter dispatches on one shape
// regardless of which framing produced it.
//
// Neither decoder uses a parser-combinator library: the textual grammar
// is tokenized with strings.Fields the way the server's RESP inline
// command path does, and the binary framing is a fixed little-endian
// header plus a fixed-layout body per tag, the same shape as the WAL's
// length/crc-prefixed frames.
package wire
