package writer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/watt-toolkit/h1engine/pkg/h1engine/channel"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/writer"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/xfer"
)

func TestContentLengthWriteDrainsInOnePass(t *testing.T) {
	fc := channel.NewFakeChannel()

	var headersDone, done bool
	_, err := writer.New(fc, []byte("PUT / HTTP/1.1\r\n\r\n"),
		xfer.DataBuffer{Bytes: []byte("hello world"), Owner: xfer.CallerOwned},
		xfer.ContentLength(11),
		xfer.WriteCallbacks{
			HeadersDone: func() { headersDone = true },
			Done:        func() { done = true },
		})
	require.NoError(t, err)

	fc.FireWritable()

	require.True(t, headersDone)
	require.True(t, done)
	require.Equal(t, "PUT / HTTP/1.1\r\n\r\nhello world", string(fc.Written()))
}

func TestChunkedWriteFramesProducerChunks(t *testing.T) {
	fc := channel.NewFakeChannel()

	pieces := [][]byte{[]byte("Wiki"), []byte("pedia")}
	i := 0
	var done bool
	_, err := writer.New(fc, []byte("POST / HTTP/1.1\r\n\r\n"),
		xfer.DataBuffer{},
		xfer.Chunked(),
		xfer.WriteCallbacks{
			Chunk: func() (xfer.DataBuffer, xfer.Decision) {
				if i >= len(pieces) {
					return xfer.DataBuffer{}, xfer.End
				}
				p := pieces[i]
				i++
				return xfer.DataBuffer{Bytes: p, Owner: xfer.CallerOwned}, xfer.Continue
			},
			Done: func() { done = true },
		})
	require.NoError(t, err)

	// The first producer poll happens synchronously inside New; drive the
	// rest through writable events.
	for !done {
		fc.FireWritable()
	}

	require.Equal(t,
		"POST / HTTP/1.1\r\n\r\n4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n",
		string(fc.Written()))
}

func TestHeaderOnlyWriteFiresHeadersDoneOnce(t *testing.T) {
	fc := channel.NewFakeChannel()

	headerCalls := 0
	var done bool
	_, err := writer.New(fc, []byte("GET / HTTP/1.1\r\n\r\n"),
		xfer.DataBuffer{},
		xfer.Unknown,
		xfer.WriteCallbacks{
			HeadersDone: func() { headerCalls++ },
			Done:        func() { done = true },
		})
	require.NoError(t, err)

	fc.FireWritable()

	require.Equal(t, 1, headerCalls)
	require.True(t, done)
	require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(fc.Written()))
}

func TestWriteErrorReportsHeadersDoneFlag(t *testing.T) {
	fc := channel.NewFakeChannel()
	fc.FailWrites(errors.New("connection reset"))

	var errSeen, headersDoneAtError bool
	_, err := writer.New(fc, []byte("GET / HTTP/1.1\r\n\r\n"),
		xfer.DataBuffer{}, xfer.Unknown,
		xfer.WriteCallbacks{
			Error: func(headersDone bool) { errSeen = true; headersDoneAtError = headersDone },
		})
	require.NoError(t, err)

	fc.FireWritable()

	require.True(t, errSeen)
	require.False(t, headersDoneAtError)
}

func TestZeroChunkChunkedBodyTerminatesImmediately(t *testing.T) {
	fc := channel.NewFakeChannel()

	var done bool
	_, err := writer.New(fc, nil, xfer.DataBuffer{}, xfer.Chunked(),
		xfer.WriteCallbacks{
			Chunk: func() (xfer.DataBuffer, xfer.Decision) { return xfer.DataBuffer{}, xfer.End },
			Done:  func() { done = true },
		})
	require.NoError(t, err)

	fc.FireWritable()

	require.True(t, done)
	require.Equal(t, "0\r\n\r\n", string(fc.Written()))
}
