package h1engine

import (
	"github.com/watt-toolkit/h1engine/pkg/h1engine/channel"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/reader"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/writer"
)

// ReadHandle is an opaque handle to an in-flight inbound transfer, returned
// by StartRead. The zero value is not usable.
type ReadHandle struct {
	r *reader.Reader
}

// StartRead begins reading a message over ch: it registers the watches it
// needs immediately and returns. cb.HeadersDone is required; the rest are
// optional and simply aren't invoked if left nil.
func StartRead(ch channel.Channel, cb ReadCallbacks, opts Options) (*ReadHandle, error) {
	r, err := reader.New(ch, opts.OverwriteBody, cb)
	if err != nil {
		return nil, err
	}
	return &ReadHandle{r: r}, nil
}

// SetCallbacks atomically replaces the handle's callback set. It must not
// be called from within one of this handle's own callbacks.
func (h *ReadHandle) SetCallbacks(cb ReadCallbacks) error {
	return h.r.SetCallbacks(cb)
}

// Cancel tears the read down. Called from within one of this handle's own
// callbacks, it takes effect only once the engine's event handler returns;
// return End to stop the transfer at once.
func (h *ReadHandle) Cancel() {
	h.r.Cancel()
}

// WriteHandle is an opaque handle to an in-flight outbound transfer,
// returned by StartWrite. The zero value is not usable.
type WriteHandle struct {
	w *writer.Writer
}

// StartWrite begins writing a message over ch: header is staged first (may
// be empty if already written elsewhere), initial is framed as the first
// body chunk if non-empty, and cb.Chunk (if set) is polled immediately for
// anything else the caller already has ready, before this call returns.
func StartWrite(ch channel.Channel, header []byte, initial DataBuffer, enc Encoding, cb WriteCallbacks) (*WriteHandle, error) {
	w, err := writer.New(ch, header, initial, enc, cb)
	if err != nil {
		return nil, err
	}
	return &WriteHandle{w: w}, nil
}

// Cancel tears the write down. Called from within one of this handle's own
// callbacks, it takes effect only once the engine's event handler returns.
func (h *WriteHandle) Cancel() {
	h.w.Cancel()
}
