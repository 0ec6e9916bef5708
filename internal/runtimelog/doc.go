// Package runtimelog defines the event types and incremental decoder
// contract the interpreter and ingestion driver depend on, plus one
// concrete SimpleDecoder that implements it for tests and local fixtures.
//
//   - event.go: Kind, Spec and Event — the in-process shape of one
//     runtime event, regardless of wire format.
//   - decoder.go: the Produce/Consume/Done/Error pull-parser protocol
//     (Decoder, Step) shared by file mode and tail mode, and the
//     DecodeFile batch helper.
//   - simpledecoder.go: SimpleDecoder, a fixed binary framing used by
//     tests and as the decoder behind the CLI's run command.
package runtimelog
