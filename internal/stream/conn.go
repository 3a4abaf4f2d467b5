package stream

import (
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"facestream/internal/logging"
)

// Phase is where a connection is in its lifecycle.
type Phase int

const (
	PhaseAwaitingTerminator Phase = iota
	PhaseRouting
	PhaseServeStatic
	PhaseServeStream
	PhaseNotFound
	PhaseRejected
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingTerminator:
		return "awaiting_terminator"
	case PhaseRouting:
		return "routing"
	case PhaseServeStatic:
		return "serve_static"
	case PhaseServeStream:
		return "serve_stream"
	case PhaseNotFound:
		return "not_found"
	case PhaseRejected:
		return "rejected"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// clientConn is the per-socket state. It belongs to exactly one handler goroutine.
type clientConn struct {
	id     string
	conn   net.Conn
	framer *Framer
	req    Request
	phase  Phase
	base   zerolog.Logger
	logger zerolog.Logger
}

func newClientConn(conn net.Conn, maxRequest int, base zerolog.Logger) *clientConn {
	id := uuid.NewString()
	c := &clientConn{
		id:     id,
		conn:   conn,
		framer: NewFramer(maxRequest),
		base:   logging.WithConnection(base, id, conn.RemoteAddr().String()),
	}
	c.setPhase(PhaseAwaitingTerminator)
	return c
}

func (c *clientConn) setPhase(p Phase) {
	c.phase = p
	c.logger = c.base.With().Str("phase", p.String()).Logger()
	c.logger.Debug().Msg("Connection phase changed")
}
