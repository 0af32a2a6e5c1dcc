package chunked_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/watt-toolkit/h1engine/pkg/h1engine/chunked"
	"github.com/watt-toolkit/h1engine/pkg/h1engine/iobuf"
)

func TestDecodeWholeBodyInOneShot(t *testing.T) {
	buf := iobuf.New()
	buf.Append([]byte("5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"))

	var st chunked.State
	datalen, terminated, err := chunked.Decode(buf, &st)
	require.NoError(t, err)
	require.True(t, terminated)
	require.Equal(t, 11, datalen)
	require.Equal(t, "hello world", string(buf.Bytes()[:datalen]))
}

func TestDecodeByteAtATime(t *testing.T) {
	wire := []byte("4\r\nWiki\r\n5\r\npedia\r\nE\r\n in\r\n\r\nchunks.\r\n0\r\n\r\n")
	buf := iobuf.New()

	var st chunked.State
	var body []byte
	terminated := false
	for i := 0; i < len(wire) && !terminated; i++ {
		buf.Append(wire[i : i+1])
		datalen, done, err := chunked.Decode(buf, &st)
		require.NoError(t, err)
		if datalen > 0 {
			body = append(body, buf.Bytes()[:datalen]...)
			buf.RemoveBlock(0, datalen)
			st.Idx = 0
		}
		terminated = done
	}
	require.True(t, terminated)
	require.Equal(t, "Wikipedia in\r\n\r\nchunks.", string(body))
}

func TestDecodeZeroChunkBody(t *testing.T) {
	buf := iobuf.New()
	buf.Append([]byte("0\r\n\r\n"))

	var st chunked.State
	datalen, terminated, err := chunked.Decode(buf, &st)
	require.NoError(t, err)
	require.True(t, terminated)
	require.Equal(t, 0, datalen)
}

func TestDecodeToleratesMixedCaseAndExtensions(t *testing.T) {
	buf := iobuf.New()
	buf.Append([]byte("A;ignored-extension=1\r\n0123456789\r\n0\r\n\r\n"))

	var st chunked.State
	datalen, terminated, err := chunked.Decode(buf, &st)
	require.NoError(t, err)
	require.True(t, terminated)
	require.Equal(t, 10, datalen)
	require.Equal(t, "0123456789", string(buf.Bytes()[:datalen]))
}

func TestDecodeRejectsSizeLineWithNoHexDigits(t *testing.T) {
	buf := iobuf.New()
	buf.Append([]byte(";ext\r\nbody\r\n0\r\n\r\n"))

	var st chunked.State
	_, _, err := chunked.Decode(buf, &st)
	require.ErrorIs(t, err, chunked.ErrInvalidChunkFraming)
}

func TestFrameHeaderFirstVsSubsequent(t *testing.T) {
	require.Equal(t, "5\r\n", string(chunked.FrameHeader(5, true)))
	require.Equal(t, "\r\n5\r\n", string(chunked.FrameHeader(5, false)))
}

func TestTerminatorNoChunksVsSomeChunks(t *testing.T) {
	require.Equal(t, "0\r\n\r\n", string(chunked.Terminator(true)))
	require.Equal(t, "\r\n0\r\n\r\n", string(chunked.Terminator(false)))
}
