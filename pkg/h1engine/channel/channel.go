// Package channel defines the non-blocking byte-channel abstraction the
// reader and writer state machines drive: tri-state read/write and a
// readiness event source the surrounding event loop pushes notifications
// through.
package channel

import "errors"

// ErrWouldBlock is returned by Read or Write when the operation cannot make
// progress right now and the caller should wait for the corresponding
// readiness event instead of retrying immediately.
var ErrWouldBlock = errors.New("h1engine/channel: operation would block")

// Event is a bitmask of readiness conditions a Channel can report.
type Event uint8

const (
	EventReadable Event = 1 << iota
	EventWritable
	EventHangup
	EventError
	EventInvalid
)

// Has reports whether e includes every bit set in o.
func (e Event) Has(o Event) bool { return e&o == o }

// Handler is invoked by the event source when a watched condition fires.
// err is non-nil only for EventError.
type Handler func(ev Event, err error)

// Watch is a live registration returned by AddWatch; Cancel deregisters it.
// Cancelling an already-cancelled Watch is a no-op.
type Watch interface {
	Cancel()
}

// Channel is a single non-blocking byte stream endpoint.
//
// Read and Write never block. They return (n, nil) for n bytes transferred
// (n == 0 with a nil error on Read means the peer performed an orderly
// shutdown — the channel has reached end of stream), (0, ErrWouldBlock)
// when the operation would otherwise block, or (0, err) for any other
// error, which is terminal for the channel.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// AddWatch registers h to be invoked whenever any condition in events
	// becomes true. A later call for an overlapping event bit replaces the
	// previous handler for that bit, mirroring how a reader's readable
	// watch and a writer's writable watch are independent registrations on
	// the same underlying channel.
	AddWatch(events Event, h Handler) (Watch, error)
}
