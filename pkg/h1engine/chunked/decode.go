package chunked

import "github.com/watt-toolkit/h1engine/pkg/h1engine/iobuf"

// Decode advances the chunked decoder over whatever bytes buf currently
// holds, compacting framing bytes (chunk-size lines, separators, the
// terminal trailer) out of buf in place as it goes so that on return the
// first datalen bytes of buf.Bytes() are contiguous body bytes with no
// chunk framing mixed in.
//
// It returns as soon as either buf is exhausted mid-chunk (terminated is
// false) or the terminal zero-length chunk, any trailer lines and the
// trailing blank line have been consumed (terminated is true). datalen is
// always st.Idx, so it includes body bytes decoded by earlier calls that
// the caller has not yet removed from buf. st is mutated in place so the next call —
// potentially after more bytes have been appended to buf — resumes exactly
// where this one left off.
func Decode(buf *iobuf.Buffer, st *State) (datalen int, terminated bool, err error) {
	for {
		data := buf.Bytes()

		switch {
		case st.Len == sepPending:
			if len(data)-st.Idx < 2 {
				return st.Idx, false, nil
			}
			buf.RemoveBlock(st.Idx, 2)
			st.Len = 0
			continue

		case st.Len == trailerPending:
			data = buf.Bytes()
			end := indexCRLF(data[st.Idx:])
			if end < 0 {
				return st.Idx, false, nil
			}
			buf.RemoveBlock(st.Idx, end+2)
			if end > 0 {
				// A trailer header line: discard it and keep looking for
				// the blank line that ends the message.
				continue
			}
			return st.Idx, true, nil

		case st.Len == 0:
			end := indexCRLF(data[st.Idx:])
			if end < 0 {
				return st.Idx, false, nil
			}
			n, digits := decodeHex(data[st.Idx : st.Idx+end])
			if digits == 0 {
				return st.Idx, false, ErrInvalidChunkFraming
			}
			buf.RemoveBlock(st.Idx, end+2)
			if n == 0 {
				st.Len = trailerPending
				continue
			}
			st.Len = n
			continue

		default: // st.Len > 0: consuming chunk body
			data = buf.Bytes()
			avail := len(data) - st.Idx
			if avail == 0 {
				return st.Idx, false, nil
			}
			take := st.Len
			if take > avail {
				take = avail
			}
			st.Idx += take
			st.Len -= take
			if st.Len > 0 {
				return st.Idx, false, nil
			}
			st.Len = sepPending
			continue
		}
	}
}

// indexCRLF returns the offset of the first "\r\n" in data, or -1.
func indexCRLF(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// decodeHex parses the leading run of hex digits in line, stopping at the
// first byte that isn't one (a chunk-extension's ';', or stray whitespace).
// digits is the count of hex digits actually consumed; a size line with
// digits == 0 is malformed.
func decodeHex(line []byte) (n int, digits int) {
	for _, c := range line {
		d, ok := hexDigit(c)
		if !ok {
			break
		}
		n = n*16 + d
		digits++
	}
	return n, digits
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
