package h1engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/watt-toolkit/h1engine/pkg/h1engine"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/channel"
)

func TestStartReadDeliversContentLengthBody(t *testing.T) {
	fc := channel.NewFakeChannel()
	fc.QueueData([]byte("GET /widgets HTTP/1.1\r\nHost: example.test\r\n\r\npayload"))
	fc.QueueWouldBlock()

	var chosen h1engine.Encoding
	var body []byte
	var finished bool

	_, err := h1engine.StartRead(fc, h1engine.ReadCallbacks{
		HeadersDone: func(header []byte) (h1engine.Encoding, h1engine.Decision) {
			chosen = h1engine.ContentLength(7)
			return chosen, h1engine.Continue
		},
		Chunk: func(buf h1engine.DataBuffer) h1engine.Decision {
			body = append(body, buf.Bytes...)
			return h1engine.Continue
		},
		Done: func(buf h1engine.DataBuffer) { finished = true },
	}, h1engine.Options{OverwriteBody: true})
	require.NoError(t, err)

	fc.FireReadable()

	require.True(t, finished)
	require.Equal(t, "payload", string(body))
	require.Equal(t, h1engine.EncodingContentLength, chosen.Kind)
}

func TestStartWriteThenStartReadRoundTrip(t *testing.T) {
	// A writer frames a chunked request onto a channel; a reader on the
	// same byte stream (modeled by feeding the writer's captured output
	// into a second FakeChannel) decodes it back out.
	writeSide := channel.NewFakeChannel()

	chunks := [][]byte{[]byte("chunk-one-"), []byte("chunk-two")}
	i := 0
	var writeDone bool
	_, err := h1engine.StartWrite(writeSide, []byte("POST /upload HTTP/1.1\r\n\r\n"),
		h1engine.DataBuffer{}, h1engine.Chunked(),
		h1engine.WriteCallbacks{
			Chunk: func() (h1engine.DataBuffer, h1engine.Decision) {
				if i >= len(chunks) {
					return h1engine.DataBuffer{}, h1engine.End
				}
				c := chunks[i]
				i++
				return h1engine.DataBuffer{Bytes: c, Owner: h1engine.CallerOwned}, h1engine.Continue
			},
			Done: func() { writeDone = true },
		})
	require.NoError(t, err)
	writeSide.FireWritable()
	require.True(t, writeDone)

	readSide := channel.NewFakeChannel()
	readSide.QueueData(writeSide.Written())
	readSide.QueueWouldBlock()

	var readBody []byte
	var readDone bool
	_, err = h1engine.StartRead(readSide, h1engine.ReadCallbacks{
		HeadersDone: func(header []byte) (h1engine.Encoding, h1engine.Decision) {
			require.Equal(t, "POST /upload HTTP/1.1\r\n\r\n", string(header))
			return h1engine.Chunked(), h1engine.Continue
		},
		Chunk: func(buf h1engine.DataBuffer) h1engine.Decision {
			readBody = append(readBody, buf.Bytes...)
			return h1engine.Continue
		},
		Done: func(buf h1engine.DataBuffer) { readDone = true },
	}, h1engine.Options{OverwriteBody: true})
	require.NoError(t, err)
	readSide.FireReadable()

	require.True(t, readDone)
	require.Equal(t, "chunk-one-chunk-two", string(readBody))
}

func TestCancelFromWithinCallbackIsSuppressedUntilReturn(t *testing.T) {
	fc := channel.NewFakeChannel()
	fc.QueueData([]byte("GET / HTTP/1.1\r\n\r\nabc"))

	var handle *h1engine.ReadHandle
	var sawChunk bool
	h, err := h1engine.StartRead(fc, h1engine.ReadCallbacks{
		HeadersDone: func(header []byte) (h1engine.Encoding, h1engine.Decision) {
			return h1engine.ContentLength(3), h1engine.Continue
		},
		Chunk: func(buf h1engine.DataBuffer) h1engine.Decision {
			sawChunk = true
			// Calling Cancel from inside a callback on the same handle
			// must not tear anything down mid-callback.
			handle.Cancel()
			return h1engine.Continue
		},
	}, h1engine.Options{OverwriteBody: true})
	require.NoError(t, err)
	handle = h

	require.NotPanics(t, func() { fc.FireReadable() })
	require.True(t, sawChunk)
}
