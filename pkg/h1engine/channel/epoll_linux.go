//go:build linux

package channel

import (
	"net"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Loop is an epoll instance shared by every FDChannel registered onto it.
// The caller drives it by calling Poll repeatedly from its own event loop —
// the engine never spins up a goroutine of its own to do this, matching the
// "driven by an external event loop" design note.
type Loop struct {
	epfd int

	mu       sync.Mutex
	channels map[int]*FDChannel
}

// NewLoop creates a new epoll instance.
func NewLoop() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "h1engine/channel: epoll_create1")
	}
	return &Loop{epfd: epfd, channels: make(map[int]*FDChannel)}, nil
}

// Poll blocks for up to timeoutMs milliseconds (-1 for indefinitely) waiting
// for readiness on any registered FDChannel, dispatching to their watches
// before returning. A timeoutMs of 0 polls without blocking.
func (l *Loop) Poll(timeoutMs int) error {
	var events [64]unix.EpollEvent
	n, err := unix.EpollWait(l.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return errors.Wrap(err, "h1engine/channel: epoll_wait")
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		l.mu.Lock()
		c := l.channels[fd]
		l.mu.Unlock()
		if c == nil {
			continue
		}
		c.dispatch(events[i].Events)
	}
	return nil
}

// Close releases the underlying epoll fd. Registered channels are not
// closed.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}

func (l *Loop) register(fd int, c *FDChannel) error {
	l.mu.Lock()
	l.channels[fd] = c
	l.mu.Unlock()
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLERR | unix.EPOLLHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return errors.Wrapf(err, "h1engine/channel: epoll_ctl add fd=%d", fd)
	}
	return nil
}

func (l *Loop) unregister(fd int) {
	l.mu.Lock()
	delete(l.channels, fd)
	l.mu.Unlock()
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// FDChannel is a Channel backed by a raw, non-blocking Linux socket fd,
// registered onto a Loop. It's grounded on the teacher's socket/tuning_linux.go
// raw-syscall style: SetNonblock plus direct unix.Read/unix.Send instead of
// going through net.Conn's blocking Read/Write.
type FDChannel struct {
	loop *Loop
	fd   int
	conn net.Conn
	raw  syscall.RawConn

	mu         sync.Mutex
	onReadable Handler
	onWritable Handler
	onAbnormal Handler
}

// NewFDChannel wraps conn (which must expose a raw fd — *net.TCPConn and
// *net.UnixConn both do) as a non-blocking Channel registered onto loop.
func NewFDChannel(loop *Loop, conn net.Conn) (*FDChannel, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errors.New("h1engine/channel: connection does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "h1engine/channel: SyscallConn")
	}

	var fd int
	var setErr error
	if err := raw.Control(func(s uintptr) {
		fd = int(s)
		setErr = unix.SetNonblock(fd, true)
	}); err != nil {
		return nil, errors.Wrap(err, "h1engine/channel: raw control")
	}
	if setErr != nil {
		return nil, errors.Wrap(setErr, "h1engine/channel: set nonblocking")
	}

	c := &FDChannel{loop: loop, fd: fd, conn: conn, raw: raw}
	if err := loop.register(fd, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Read implements Channel.
func (c *FDChannel) Read(p []byte) (int, error) {
	var n int
	var opErr error
	if err := c.raw.Control(func(s uintptr) {
		n, opErr = unix.Read(int(s), p)
	}); err != nil {
		return 0, err
	}
	if opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK {
		return 0, ErrWouldBlock
	}
	if opErr != nil {
		return 0, opErr
	}
	return n, nil
}

// Write implements Channel. It sends with MSG_NOSIGNAL so a write to a
// peer that has already reset the connection reports EPIPE through the
// normal error path instead of raising SIGPIPE — the Go equivalent of the
// original's process-wide SIGPIPE masking around writer syscalls.
func (c *FDChannel) Write(p []byte) (int, error) {
	var n int
	var opErr error
	if err := c.raw.Control(func(s uintptr) {
		n, opErr = unix.Send(int(s), p, unix.MSG_NOSIGNAL)
	}); err != nil {
		return 0, err
	}
	if opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK {
		return 0, ErrWouldBlock
	}
	if opErr != nil {
		return 0, opErr
	}
	return n, nil
}

// AddWatch implements Channel.
func (c *FDChannel) AddWatch(events Event, h Handler) (Watch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if events.Has(EventReadable) {
		c.onReadable = h
	}
	if events.Has(EventWritable) {
		c.onWritable = h
	}
	if events.Has(EventHangup) || events.Has(EventError) || events.Has(EventInvalid) {
		c.onAbnormal = h
	}
	return &fdWatch{c: c, events: events}, nil
}

// Close deregisters the channel from its loop and closes the underlying
// connection.
func (c *FDChannel) Close() error {
	c.loop.unregister(c.fd)
	return c.conn.Close()
}

func (c *FDChannel) dispatch(mask uint32) {
	c.mu.Lock()
	r, w, a := c.onReadable, c.onWritable, c.onAbnormal
	c.mu.Unlock()

	if mask&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 && a != nil {
		ev := EventError
		if mask&unix.EPOLLHUP != 0 && mask&unix.EPOLLERR == 0 {
			ev = EventHangup
		}
		a(ev, nil)
		return
	}
	if mask&unix.EPOLLIN != 0 && r != nil {
		r(EventReadable, nil)
	}
	if mask&unix.EPOLLOUT != 0 && w != nil {
		w(EventWritable, nil)
	}
}

type fdWatch struct {
	c      *FDChannel
	events Event
}

func (w *fdWatch) Cancel() {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	if w.events.Has(EventReadable) {
		w.c.onReadable = nil
	}
	if w.events.Has(EventWritable) {
		w.c.onWritable = nil
	}
	if w.events.Has(EventHangup) || w.events.Has(EventError) || w.events.Has(EventInvalid) {
		w.c.onAbnormal = nil
	}
}
