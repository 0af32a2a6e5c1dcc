// Package xfer holds the data model shared by the reader and writer state
// machines: transfer encodings, the continue/end verdict callbacks return,
// and the ownership-tagged buffer views passed across the callback boundary.
//
// It exists as its own package (rather than living in the root h1engine
// package) so that pkg/h1engine/reader and pkg/h1engine/writer can depend on
// these types without creating an import cycle back through the root
// package, which in turn depends on reader and writer to build handles.
package xfer

// EncodingKind selects how a message body's length is determined.
type EncodingKind int

const (
	// EncodingUnknown means the body extends until the channel hangs up
	// (HTTP/1.0 style, close-delimited framing). This is the default
	// encoding in effect before the headers-done callback chooses one.
	EncodingUnknown EncodingKind = iota
	// EncodingContentLength means exactly Encoding.Length body bytes follow.
	EncodingContentLength
	// EncodingChunked means the body is a series of hex-length-prefixed
	// chunks terminated by a zero-length chunk.
	EncodingChunked
)

// Encoding is the transfer encoding decided by the headers-done callback (for
// reads) or chosen by the caller at write start (for writes).
type Encoding struct {
	Kind EncodingKind
	// Length is only meaningful when Kind == EncodingContentLength.
	Length int64
}

// ContentLength builds an Encoding for a message with exactly n body bytes.
func ContentLength(n int64) Encoding { return Encoding{Kind: EncodingContentLength, Length: n} }

// Chunked builds an Encoding for a chunked-transfer-encoded body.
func Chunked() Encoding { return Encoding{Kind: EncodingChunked} }

// Unknown is the close-delimited encoding in effect until a callback picks
// something else.
var Unknown = Encoding{Kind: EncodingUnknown}

// Decision is the verdict a callback returns to the engine.
type Decision int

const (
	// Continue means the transfer should keep running: more body is
	// expected (reader side) or more chunks may be supplied (writer side).
	Continue Decision = iota
	// End means the caller wants the transfer stopped cleanly right now.
	End
)

// Ownership tags a DataBuffer's lifetime contract.
type Ownership int

const (
	// SystemOwned means the bytes are borrowed from the engine's internal
	// buffer and are valid only for the dynamic extent of the callback
	// that received them — the callee must copy anything it needs to keep,
	// except the final-delivery callback, which may retain the slice.
	SystemOwned Ownership = iota
	// CallerOwned means the application supplied this buffer for an
	// outbound write; the engine never retains it past one write call.
	CallerOwned
)

// DataBuffer is a byte run annotated with who owns it and for how long.
type DataBuffer struct {
	Bytes []byte
	Owner Ownership
}

// ReadHeadersDoneFunc is invoked once the CRLF-CRLF boundary has been
// located. header includes the trailing blank line. It returns the chosen
// encoding, or Decision == End to stop the transfer: no body is read and
// neither the Done nor the Error callback fires.
type ReadHeadersDoneFunc func(header []byte) (Encoding, Decision)

// ReadChunkFunc delivers body bytes. In streaming (overwrite) mode these are
// the bytes seen since the last delivery; otherwise each call receives every
// body byte accumulated so far, from the start of the body, including bytes
// already passed to earlier calls.
type ReadChunkFunc func(buf DataBuffer) Decision

// ReadDoneFunc delivers the complete (or, in streaming mode, empty) body
// exactly once at the end of a successful transfer.
type ReadDoneFunc func(buf DataBuffer)

// ReadErrorFunc reports a channel error or an unexpected hangup. bodyStarted
// tells the caller whether any body bytes had already arrived.
type ReadErrorFunc func(bodyStarted bool)

// ReadCallbacks is the full callback set for an inbound transfer.
type ReadCallbacks struct {
	HeadersDone ReadHeadersDoneFunc
	Chunk       ReadChunkFunc
	Done        ReadDoneFunc
	Error       ReadErrorFunc
}

// WriteHeadersDoneFunc fires once the header bytes have been fully drained
// to the channel.
type WriteHeadersDoneFunc func()

// WriteChunkFunc is polled by the writer whenever its staging buffer runs
// dry. It returns the next body buffer (possibly empty) and a verdict.
type WriteChunkFunc func() (DataBuffer, Decision)

// WriteDoneFunc fires once after the transfer completes normally.
type WriteDoneFunc func()

// WriteErrorFunc reports a channel error or hangup. headersDone tells the
// caller whether the peer had already seen the headers.
type WriteErrorFunc func(headersDone bool)

// WriteCallbacks is the full callback set for an outbound transfer.
type WriteCallbacks struct {
	HeadersDone WriteHeadersDoneFunc
	Chunk       WriteChunkFunc
	Done        WriteDoneFunc
	Error       WriteErrorFunc
}
