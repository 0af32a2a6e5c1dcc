// Package chunked implements the HTTP/1.x chunked transfer-coding: decoding
// on the read side (restartable across partial reads) and chunk framing on
// the write side.
package chunked

// State is the decoder's resumable position, persisted by the reader across
// calls to Decode so a chunk spanning multiple non-blocking reads picks up
// exactly where it left off.
//
// Idx is the number of decoded body bytes sitting contiguously at the head
// of the buffer. Decode only ever advances it; it is never reset on entry,
// so it keeps counting across calls until the caller removes delivered
// bytes from the buffer and sets Idx back to zero itself. Len encodes the
// decoder's sub-phase together with how many body bytes remain in the chunk
// currently being consumed:
//
//   - Len == 0:  expect a chunk-size line at Idx, no separator CRLF first
//     (before the first chunk, and again once a separator has been removed)
//   - Len == sepPending: expect a 2-byte CRLF separator at Idx, then a
//     chunk-size line
//   - Len == trailerPending: discard trailer lines at Idx up to and
//     including the terminal blank-line CRLF
//   - Len > 0: expect Len more body bytes before the next separator
type State struct {
	Idx int
	Len int
}

const (
	sepPending     = -1
	trailerPending = -2
)
