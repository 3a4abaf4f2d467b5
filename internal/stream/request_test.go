package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramerSingleChunk(t *testing.T) {
	f := NewFramer(1024)

	done, err := f.Feed([]byte("GET /frames HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)

	req, err := f.Request()
	require.NoError(t, err)
	assert.Equal(t, Request{Method: "GET", Path: "/frames"}, req)
}

func TestFramerSplitAcrossChunks(t *testing.T) {
	f := NewFramer(1024)

	done, err := f.Feed([]byte("G"))
	require.NoError(t, err)
	assert.False(t, done)

	done, err = f.Feed([]byte("ET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)

	req, err := f.Request()
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/", req.Path)
}

func TestFramerTerminatorStraddlesChunks(t *testing.T) {
	f := NewFramer(1024)

	for _, chunk := range []string{"GET / HTTP/1.1\r", "\n\r", "\n"} {
		done, err := f.Feed([]byte(chunk))
		require.NoError(t, err)
		if chunk == "\n" {
			assert.True(t, done)
		} else {
			assert.False(t, done)
		}
	}
}

func TestFramerIgnoresBytesAfterCompletion(t *testing.T) {
	f := NewFramer(64)

	done, err := f.Feed([]byte("GET / HTTP/1.1\r\n\r\nextra"))
	require.NoError(t, err)
	require.True(t, done)

	done, err = f.Feed([]byte(strings.Repeat("x", 200)))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, len("GET / HTTP/1.1\r\n\r\nextra"), f.Len())
}

func TestFramerCompletesWithTrailingBytesInSameRead(t *testing.T) {
	f := NewFramer(1024)

	done, err := f.Feed([]byte("GET / HTTP/1.1\r\n\r\nX"))
	require.NoError(t, err)
	require.True(t, done, "terminator need not be the last bytes received")

	req, err := f.Request()
	require.NoError(t, err)
	assert.Equal(t, Request{Method: "GET", Path: "/"}, req)
}

func TestFramerRejectsOversizeRequest(t *testing.T) {
	f := NewFramer(16)

	_, err := f.Feed([]byte("GET /aaaa"))
	require.NoError(t, err)

	_, err = f.Feed([]byte("aaaaaaaaaa"))
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestFramerRequestBeforeCompletion(t *testing.T) {
	f := NewFramer(64)
	_, err := f.Feed([]byte("GET / HTTP/1.1\r\n"))
	require.NoError(t, err)

	_, err = f.Request()
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Request
		wantErr bool
	}{
		{line: "GET / HTTP/1.1\r", want: Request{Method: "GET", Path: "/"}},
		{line: "POST /frames HTTP/1.0", want: Request{Method: "POST", Path: "/frames"}},
		{line: "GET /frames", want: Request{Method: "GET", Path: "/frames"}},
		{line: "GARBAGE", wantErr: true},
		{line: "", wantErr: true},
		{line: "   \r", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseRequestLine(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
