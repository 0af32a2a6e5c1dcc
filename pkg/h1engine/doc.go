// Package h1engine drives a single HTTP/1.x message transfer — request or
// response, read or write — across one non-blocking byte channel. It scans
// for the header/body boundary, decodes or frames the body under
// Content-Length, chunked, or close-delimited encoding, and delivers bytes
// through caller-supplied callbacks.
//
// The engine owns no socket and no event loop: callers supply a
// channel.Channel and drive its readiness events (directly, or through a
// channel.Loop), and StartRead/StartWrite register the watches the engine
// needs against it.
package h1engine
