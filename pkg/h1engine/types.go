package h1engine

import "github.com/watt-toolkit/h1engine/pkg/h1engine/xfer"

// Encoding, Decision, Ownership, and DataBuffer are aliased from the xfer
// package so callers importing only the root package see the whole public
// vocabulary in one place; reader and writer depend on xfer directly to
// avoid an import cycle back through this package.
type (
	Encoding     = xfer.Encoding
	EncodingKind = xfer.EncodingKind
	Decision     = xfer.Decision
	Ownership    = xfer.Ownership
	DataBuffer   = xfer.DataBuffer

	ReadCallbacks  = xfer.ReadCallbacks
	WriteCallbacks = xfer.WriteCallbacks
)

const (
	EncodingUnknown       = xfer.EncodingUnknown
	EncodingContentLength = xfer.EncodingContentLength
	EncodingChunked       = xfer.EncodingChunked

	Continue = xfer.Continue
	End      = xfer.End

	SystemOwned = xfer.SystemOwned
	CallerOwned = xfer.CallerOwned
)

// Unknown is the close-delimited encoding in effect until a headers-done
// callback picks something else.
var Unknown = xfer.Unknown

// ContentLength builds an Encoding for a message with exactly n body bytes.
func ContentLength(n int64) Encoding { return xfer.ContentLength(n) }

// Chunked builds an Encoding for a chunked-transfer-encoded body.
func Chunked() Encoding { return xfer.Chunked() }
