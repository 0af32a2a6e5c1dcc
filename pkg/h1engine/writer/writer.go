// Package writer implements the outbound message transfer state machine:
// drain staged bytes (header plus any initial body) to the channel, poll
// the caller for more chunks once drained, frame chunked bodies on demand,
// and report completion or failure.
package writer

import (
	"github.com/pkg/errors"

	"github.com/watt-toolkit/h1engine/pkg/h1engine/channel"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/chunked"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/iobuf"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/xfer"
)

// Writer drives a single outbound transfer over one channel.Channel. Start
// with New; it registers its own watches immediately, invoking the Chunk
// callback (if supplied) synchronously to collect the first body chunk
// before the first writable event ever fires.
type Writer struct {
	ch      channel.Channel
	writeW  channel.Watch
	abnormW channel.Watch

	staging   *iobuf.Buffer
	headerLen int
	drained   int

	headersDone bool
	encoding    xfer.Encoding
	chunkCnt    int

	callbacks    xfer.WriteCallbacks
	producerDone bool

	processing    bool
	cancelPending bool
	done          bool
}

// New stages header (may be empty once the caller has already written it
// elsewhere) and, when enc is chunked, frames initial's bytes (if any) as
// the first chunk, then polls cb.Chunk once to collect everything the
// caller already has ready. It registers writable/abnormal watches on ch
// before returning.
func New(ch channel.Channel, header []byte, initial xfer.DataBuffer, enc xfer.Encoding, cb xfer.WriteCallbacks) (*Writer, error) {
	w := &Writer{
		ch:       ch,
		staging:  iobuf.New(),
		encoding: enc,
		callbacks: cb,
	}

	if len(header) > 0 {
		w.staging.Append(header)
		w.headerLen = len(header)
	}
	if len(initial.Bytes) > 0 {
		w.writeChunk(initial.Bytes)
	}
	if cb.Chunk != nil {
		buf, decision := cb.Chunk()
		if len(buf.Bytes) > 0 {
			w.writeChunk(buf.Bytes)
		}
		if decision == xfer.End {
			w.producerDone = true
			if w.encoding.Kind == xfer.EncodingChunked {
				w.staging.Append(chunked.Terminator(w.chunkCnt == 0))
			}
		}
	} else {
		w.producerDone = true
		if w.encoding.Kind == xfer.EncodingChunked {
			w.staging.Append(chunked.Terminator(w.chunkCnt == 0))
		}
	}

	writeW, err := ch.AddWatch(channel.EventWritable, w.onWritable)
	if err != nil {
		return nil, errors.Wrap(err, "h1engine/writer: registering writable watch")
	}
	abnormW, err := ch.AddWatch(channel.EventHangup|channel.EventError|channel.EventInvalid, w.onAbnormal)
	if err != nil {
		writeW.Cancel()
		return nil, errors.Wrap(err, "h1engine/writer: registering abnormal-condition watch")
	}
	w.writeW, w.abnormW = writeW, abnormW
	return w, nil
}

func (w *Writer) writeChunk(data []byte) {
	if w.encoding.Kind == xfer.EncodingChunked {
		w.staging.Append(chunked.FrameHeader(len(data), w.chunkCnt == 0))
		w.chunkCnt++
	}
	w.staging.Append(data)
}

// Cancel tears the transfer down. Like Reader.Cancel, calling it from
// within one of this Writer's own callbacks does not tear anything down
// mid-callback: the request is recorded and applied when the event handler
// that ran the callback returns.
func (w *Writer) Cancel() {
	if w.processing || w.done {
		w.cancelPending = w.processing
		return
	}
	w.teardown()
}

func (w *Writer) teardown() {
	if w.done {
		return
	}
	w.done = true
	if w.writeW != nil {
		w.writeW.Cancel()
	}
	if w.abnormW != nil {
		w.abnormW.Cancel()
	}
	// The writer never lends its staging buffer to a callback, so it's
	// always safe to return it to the pool.
	w.staging.Release()
}

func (w *Writer) runDeferred() {
	if w.cancelPending {
		w.cancelPending = false
		w.teardown()
	}
}

func (w *Writer) onWritable(ev channel.Event, _ error) {
	if w.done {
		return
	}
	w.processing = true
	for {
		blocked, failed := w.drain()
		if failed != nil {
			w.processing = false
			if w.callbacks.Error != nil {
				w.callbacks.Error(w.headersDone)
			}
			w.teardown()
			w.runDeferred()
			return
		}
		if blocked {
			w.processing = false
			w.runDeferred()
			return
		}
		// staging is empty: request more, or finish.
		if !w.producerDone && w.callbacks.Chunk != nil {
			buf, decision := w.callbacks.Chunk()
			if len(buf.Bytes) > 0 {
				w.writeChunk(buf.Bytes)
			}
			if decision == xfer.End {
				w.producerDone = true
				if w.encoding.Kind == xfer.EncodingChunked {
					w.staging.Append(chunked.Terminator(w.chunkCnt == 0))
				}
			}
			if w.staging.Len() > 0 {
				continue
			}
			if !w.producerDone {
				w.processing = false
				w.runDeferred()
				return
			}
		}
		w.processing = false
		if w.callbacks.Done != nil {
			w.callbacks.Done()
		}
		w.teardown()
		w.runDeferred()
		return
	}
}

// drain writes out as much of the staging buffer as the channel accepts
// right now. blocked is true if the channel reported ErrWouldBlock and the
// caller should wait for the next writable event; failed is non-nil for
// any other write error.
func (w *Writer) drain() (blocked bool, failed error) {
	for w.staging.Len() > 0 {
		n, err := w.ch.Write(w.staging.Bytes())
		if err == channel.ErrWouldBlock {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return true, nil
		}
		w.drained += n
		if !w.headersDone && w.drained >= w.headerLen {
			w.headersDone = true
			if w.callbacks.HeadersDone != nil {
				w.callbacks.HeadersDone()
			}
		}
		w.staging.RemoveBlock(0, n)
	}
	return false, nil
}

func (w *Writer) onAbnormal(ev channel.Event, err error) {
	if w.done {
		return
	}
	w.processing = true
	if w.callbacks.Error != nil {
		w.callbacks.Error(w.headersDone)
	}
	w.processing = false
	w.teardown()
	w.runDeferred()
}
