package stream

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var terminator = []byte("\r\n\r\n")

var (
	// ErrRequestTooLarge means the client sent more than the accumulator cap
	// without completing its request.
	ErrRequestTooLarge = errors.New("request exceeds size limit")
	// ErrMalformedRequest means the request line has no method/target pair.
	ErrMalformedRequest = errors.New("malformed request line")
)

// Request is what the server understands of an inbound request: the first
// two words of the request line. Headers are never parsed.
type Request struct {
	Method string
	Path   string
}

// Framer accumulates raw bytes until the end-of-headers terminator shows up.
type Framer struct {
	buf  []byte
	max  int
	done bool
}

// NewFramer returns a framer that refuses to hold more than max bytes.
func NewFramer(max int) *Framer {
	return &Framer{max: max}
}

// Feed appends p and reports whether the terminator has been seen anywhere in
// the accumulated bytes, not only at its end: bytes that follow the terminator
// in the same read complete the request too. Once complete, further input is
// ignored.
func (f *Framer) Feed(p []byte) (bool, error) {
	if f.done {
		return true, nil
	}
	if len(f.buf)+len(p) > f.max {
		return false, fmt.Errorf("%w: %d bytes", ErrRequestTooLarge, len(f.buf)+len(p))
	}

	// The terminator may straddle the previous chunk.
	from := len(f.buf) - (len(terminator) - 1)
	if from < 0 {
		from = 0
	}
	f.buf = append(f.buf, p...)
	f.done = bytes.Contains(f.buf[from:], terminator)
	return f.done, nil
}

// Len returns the number of bytes accumulated so far.
func (f *Framer) Len() int {
	return len(f.buf)
}

// Request extracts the request line of a completed request.
func (f *Framer) Request() (Request, error) {
	if !f.done {
		return Request{}, fmt.Errorf("%w: terminator not seen", ErrMalformedRequest)
	}
	line := f.buf
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return ParseRequestLine(string(line))
}

// ParseRequestLine splits "METHOD TARGET ..." on whitespace.
func ParseRequestLine(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Request{}, fmt.Errorf("%w: %q", ErrMalformedRequest, line)
	}
	return Request{Method: fields[0], Path: fields[1]}, nil
}
