// Package reader implements the inbound message transfer state machine:
// scan for the header/body boundary, decode the body under whichever
// encoding the headers callback selects, and deliver bytes through the
// caller's callbacks.
package reader

import (
	"github.com/pkg/errors"

	"github.com/watt-toolkit/h1engine/pkg/h1engine/channel"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/chunked"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/iobuf"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/xfer"
)

// defaultScratchSize is the size of the temporary buffer each readable
// event drains the channel into before appending to the accumulation
// buffer, matching the teacher's DefaultBufferSize convention.
const defaultScratchSize = 4096

// Reader drives a single inbound transfer over one channel.Channel. Start
// with New; it registers its own watches immediately and tears them down
// on completion, error, or Cancel.
type Reader struct {
	ch      channel.Channel
	readW   channel.Watch
	abnormW channel.Watch

	scratch []byte
	buf     *iobuf.Buffer

	headerLen     int
	encoding      xfer.Encoding
	contentLength int64
	chunkState    chunked.State
	overwriteBody bool

	callbacks xfer.ReadCallbacks

	callbackIssued bool
	bodyStarted    bool
	processing     bool
	cancelPending  bool
	done           bool
}

// New starts a read transfer over ch. overwriteBody selects whether body
// bytes are dropped from the internal buffer once delivered (streaming, the
// common case) or retained so the final callback receives the whole body
// accumulated from the start (see Reader's overwriteBody field and spec
// §4.4's overwrite_chunks).
func New(ch channel.Channel, overwriteBody bool, cb xfer.ReadCallbacks) (*Reader, error) {
	if cb.HeadersDone == nil {
		return nil, errors.New("h1engine/reader: HeadersDone callback is required")
	}
	r := &Reader{
		ch:            ch,
		scratch:       make([]byte, defaultScratchSize),
		buf:           iobuf.New(),
		overwriteBody: overwriteBody,
		callbacks:     cb,
	}

	readW, err := ch.AddWatch(channel.EventReadable, r.onReadable)
	if err != nil {
		return nil, errors.Wrap(err, "h1engine/reader: registering readable watch")
	}
	abnormW, err := ch.AddWatch(channel.EventHangup|channel.EventError|channel.EventInvalid, r.onAbnormal)
	if err != nil {
		readW.Cancel()
		return nil, errors.Wrap(err, "h1engine/reader: registering abnormal-condition watch")
	}
	r.readW, r.abnormW = readW, abnormW
	return r, nil
}

// SetCallbacks atomically replaces the callback set. It must not be called
// from within one of this Reader's own callbacks; doing so returns an
// error instead of corrupting in-flight state.
func (r *Reader) SetCallbacks(cb xfer.ReadCallbacks) error {
	if r.processing {
		return errors.New("h1engine/reader: cannot set callbacks from within a callback on the same handle")
	}
	r.callbacks = cb
	return nil
}

// Cancel tears the transfer down: watches are deregistered and the internal
// buffer released if no callback has ever seen a view into it. Calling
// Cancel from within one of this Reader's own callbacks does not tear
// anything down mid-callback: the request is recorded and applied when the
// event handler that ran the callback returns. A callback that wants the
// transfer stopped at once returns xfer.End instead.
func (r *Reader) Cancel() {
	if r.processing || r.done {
		r.cancelPending = r.processing
		return
	}
	r.teardown()
}

func (r *Reader) teardown() {
	if r.done {
		return
	}
	r.done = true
	if r.readW != nil {
		r.readW.Cancel()
	}
	if r.abnormW != nil {
		r.abnormW.Cancel()
	}
	if !r.callbackIssued {
		r.buf.Release()
	}
}

// runDeferred applies a Cancel that arrived while processing was true.
func (r *Reader) runDeferred() {
	if r.cancelPending {
		r.cancelPending = false
		r.teardown()
	}
}

func (r *Reader) onReadable(ev channel.Event, _ error) {
	if r.done {
		return
	}
	r.processing = true
	for {
		total, eofSeen, readErr := r.fill()
		if readErr != nil {
			r.processing = false
			r.emitError(r.bodyStarted)
			r.teardown()
			r.runDeferred()
			return
		}
		if total == 0 && !eofSeen {
			// Genuinely nothing new and no orderly shutdown observed: wait
			// for the next readable event rather than re-running the body
			// decoder against an unchanged buffer.
			r.processing = false
			r.runDeferred()
			return
		}
		finished, cancelled := r.advance(total, eofSeen)
		if cancelled {
			r.processing = false
			r.teardown()
			r.runDeferred()
			return
		}
		if finished {
			r.processing = false
			r.emitDone()
			r.teardown()
			r.runDeferred()
			return
		}
		// Neither finished nor cancelled implies total > 0 here: a total of
		// 0 only reaches this point when eofSeen is true, and advance
		// always reports finished or cancelled in that case. Loop around and try to
		// read more immediately, mirroring the original's READ_AGAIN.
	}
}

func (r *Reader) onAbnormal(ev channel.Event, err error) {
	if r.done {
		return
	}
	r.processing = true
	normalEOF := r.encoding.Kind == xfer.EncodingUnknown
	if normalEOF {
		r.emitDone()
	} else {
		r.emitError(r.bodyStarted)
	}
	r.processing = false
	r.teardown()
	r.runDeferred()
}

// fill drains the channel into buf until it would block or errs. When an
// error occurs after some bytes were already read this round, it is
// swallowed for now (processing continues on what was read) and will
// resurface on the very next read attempt, mirroring the original's
// goto PROCESS_READ-before-reporting-the-error behavior.
func (r *Reader) fill() (total int, eofSeen bool, err error) {
	for {
		n, rerr := r.ch.Read(r.scratch)
		switch {
		case rerr == channel.ErrWouldBlock:
			return total, false, nil
		case rerr != nil:
			if total > 0 {
				return total, false, nil
			}
			return 0, false, rerr
		case n == 0:
			return total, true, nil
		default:
			r.buf.Append(r.scratch[:n])
			total += n
		}
	}
}

// advance processes whatever is newly available (totalRead bytes read this
// round, 0 meaning an orderly end of stream was seen with no header-scan
// progress possible). It returns finished when the transfer has completed
// normally, and cancelled when a callback returned xfer.End.
func (r *Reader) advance(totalRead int, eofSeen bool) (finished, cancelled bool) {
	if r.headerLen == 0 {
		idx := indexHeaderEnd(r.buf.Bytes())
		if idx < 0 {
			if eofSeen {
				// The channel shut down before the header boundary ever
				// arrived; encoding is still its Unknown default, so this
				// is the same "end of body before any header" case
				// onAbnormal treats as a normal finish.
				return true, false
			}
			return false, false
		}
		header := r.buf.Bytes()[:idx]
		enc, decision := r.callbacks.HeadersDone(header)
		if decision == xfer.End {
			return false, true
		}
		r.encoding = enc
		r.contentLength = enc.Length
		r.buf.RemoveBlock(0, idx)
		r.headerLen = idx
	}

	if totalRead == 0 {
		// Orderly end of stream after the headers: the normal end of a
		// close-delimited body, an error for any other encoding.
		if r.encoding.Kind != xfer.EncodingUnknown {
			r.emitError(r.bodyStarted)
			return false, true
		}
		return true, false
	}

	var done, bodyCancelled bool
	switch r.encoding.Kind {
	case xfer.EncodingChunked:
		done, bodyCancelled = r.readChunked()
	case xfer.EncodingContentLength:
		done, bodyCancelled = r.readContentLength()
	default:
		done, bodyCancelled = r.readUnknown()
	}
	if bodyCancelled {
		return false, true
	}
	return done, false
}

func (r *Reader) readChunked() (done, cancelled bool) {
	datalen, terminated, err := chunked.Decode(r.buf, &r.chunkState)
	if err != nil {
		// A malformed chunk-size line is reported the same way any other
		// channel-level failure is: no more body can be trusted.
		r.emitError(true)
		return false, true
	}
	if datalen > 0 {
		data := r.buf.Bytes()[:r.chunkState.Idx]
		if r.issueChunk(data) {
			return false, true
		}
		if r.overwriteBody {
			r.buf.RemoveBlock(0, r.chunkState.Idx)
			r.chunkState.Idx = 0
		}
	}
	return terminated, false
}

func (r *Reader) readContentLength() (done, cancelled bool) {
	if r.buf.Len() > 0 {
		data := r.buf.Bytes()
		if r.issueChunk(data) {
			return false, true
		}
		if r.overwriteBody {
			r.contentLength -= int64(len(data))
			r.buf.Reset()
		}
	}
	return r.contentLength == int64(r.buf.Len()), false
}

func (r *Reader) readUnknown() (done, cancelled bool) {
	if r.buf.Len() > 0 {
		data := r.buf.Bytes()
		if r.issueChunk(data) {
			return false, true
		}
		if r.overwriteBody {
			r.buf.Reset()
		}
	}
	return false, false
}

// issueChunk delivers data through the Chunk callback (if one is set) and
// reports whether the callback asked to end the transfer.
func (r *Reader) issueChunk(data []byte) (cancelled bool) {
	r.bodyStarted = true
	if r.callbacks.Chunk == nil {
		return false
	}
	r.callbackIssued = true
	decision := r.callbacks.Chunk(xfer.DataBuffer{Bytes: data, Owner: xfer.SystemOwned})
	return decision == xfer.End
}

func (r *Reader) emitDone() {
	if r.callbacks.Done == nil {
		return
	}
	r.callbackIssued = true
	r.callbacks.Done(xfer.DataBuffer{Bytes: r.buf.Bytes(), Owner: xfer.SystemOwned})
}

func (r *Reader) emitError(bodyStarted bool) {
	if r.callbacks.Error == nil {
		return
	}
	r.callbacks.Error(bodyStarted)
}

// indexHeaderEnd returns the offset one past the CRLF-CRLF header
// terminator in data (the length of the header including the terminator),
// or -1 if the boundary hasn't arrived yet.
func indexHeaderEnd(data []byte) int {
	for i := 0; i+3 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' && data[i+2] == '\r' && data[i+3] == '\n' {
			return i + 4
		}
	}
	return -1
}
