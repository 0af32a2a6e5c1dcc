package chunked

import "errors"

// Decoder errors.
var (
	// ErrInvalidChunkFraming is returned when a chunk-size line contains no
	// hex digits at all before its terminating CRLF (or before a
	// chunk-extension's ';'). A size line that parses at least one hex
	// digit is accepted even with trailing garbage, matching the
	// permissive original; a line with zero digits cannot mean anything
	// and is rejected rather than silently treated as a zero-length chunk.
	ErrInvalidChunkFraming = errors.New("chunked: chunk-size line has no hex digits")
)
