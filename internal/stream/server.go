// Package stream serves the live feed over a minimal request-line protocol on
// raw TCP: the root page, a multipart/x-mixed-replace stream of the latest
// frame, and fixed 404/500 answers for everything else.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"facestream/internal/config"
	"facestream/internal/metrics"
	"facestream/internal/services/encoding"
)

const (
	readChunkSize = 1024
	closeLinger   = time.Second
	maxAcceptWait = time.Second
)

// Options configures the stream server.
type Options struct {
	Addr            string
	StreamPath      string
	Boundary        string
	Format          encoding.Format
	StreamInterval  time.Duration
	ReadTimeout     time.Duration // whole request must arrive within this
	WriteTimeout    time.Duration // per write
	MaxRequestBytes int

	StaticPage        []byte
	StaticContentType string
}

// OptionsFromConfig maps configuration onto server options.
func OptionsFromConfig(cfg *config.Config, format encoding.Format, page []byte) Options {
	return Options{
		Addr:              cfg.StreamAddr,
		StreamPath:        cfg.StreamPath,
		Boundary:          cfg.StreamBoundary,
		Format:            format,
		StreamInterval:    cfg.StreamInterval,
		ReadTimeout:       cfg.StreamReadTimeout,
		WriteTimeout:      cfg.StreamWriteTimeout,
		MaxRequestBytes:   cfg.StreamMaxRequestBytes,
		StaticPage:        page,
		StaticContentType: StaticContentType,
	}
}

// Server accepts connections and gives each its own handler goroutine.
type Server struct {
	opts    Options
	router  Router
	frames  FrameReader
	encoder encoding.FrameEncoder
	logger  zerolog.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown bool
	wg       sync.WaitGroup

	streams atomic.Int64
}

func NewServer(opts Options, frames FrameReader, enc encoding.FrameEncoder, logger zerolog.Logger) *Server {
	if opts.StaticContentType == "" {
		opts.StaticContentType = StaticContentType
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 20 * time.Millisecond
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 8 * 1024
	}
	return &Server{
		opts:    opts,
		router:  Router{StreamPath: opts.StreamPath},
		frames:  frames,
		encoder: enc,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ActiveStreams returns the number of clients currently receiving the stream.
func (s *Server) ActiveStreams() int64 {
	return s.streams.Load()
}

// ListenAndServe binds opts.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. It returns nil after ctx is cancelled and
// every handler has finished. Per-connection failures never end the loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("stream_path", s.opts.StreamPath).
		Str("format", string(s.opts.Format)).
		Msg("Stream server listening")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.logger.Info().Msg("Stream server stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return fmt.Errorf("listener closed: %w", err)
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptWait {
				delay = maxAcceptWait
			}
			s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Accept failed")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			continue
		}
		delay = 0

		s.track(conn, true)
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !add {
		delete(s.conns, conn)
		return
	}
	if s.shutdown {
		conn.Close()
	}
	s.conns[conn] = struct{}{}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	for conn := range s.conns {
		conn.Close()
	}
}

// handle owns conn for its whole life.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	c := newClientConn(conn, s.opts.MaxRequestBytes, s.logger)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("Connection handler panic recovered")
		}
		conn.Close()
		s.track(conn, false)
		c.setPhase(PhaseClosed)
		s.wg.Done()
	}()

	req, err := s.readRequest(c)
	if err != nil {
		// Protocol violation or transport failure: no structured answer.
		c.logger.Warn().Err(err).Int("buffered", c.framer.Len()).Msg("Failed to read request")
		return
	}
	c.req = req
	c.setPhase(PhaseRouting)

	route := s.router.Route(req)
	metrics.RecordConnection(route.String())
	c.logger.Debug().Str("method", req.Method).Str("path", req.Path).Str("route", route.String()).Msg("Request routed")

	switch route {
	case RouteMethodNotAllowed:
		c.setPhase(PhaseRejected)
		c.logger.Warn().Str("method", req.Method).Msg("Unsupported method")
		s.reply(c, errorResponse)
	case RouteNotFound:
		c.setPhase(PhaseNotFound)
		c.logger.Info().Str("path", req.Path).Msg("Path not found")
		s.reply(c, notFoundResponse)
	case RouteStatic:
		c.setPhase(PhaseServeStatic)
		s.reply(c, staticResponse(s.opts.StaticContentType, s.opts.StaticPage))
	case RouteStream:
		c.setPhase(PhaseServeStream)
		s.serveStream(ctx, c)
	}
}

// readRequest reads until the framer completes, the size cap is hit, or the
// read deadline passes.
func (s *Server) readRequest(c *clientConn) (Request, error) {
	if s.opts.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			return Request{}, err
		}
	}

	buf := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			done, ferr := c.framer.Feed(buf[:n])
			if ferr != nil {
				return Request{}, ferr
			}
			if done {
				return c.framer.Request()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Request{}, fmt.Errorf("%w: connection closed before end of request", ErrMalformedRequest)
			}
			return Request{}, err
		}
	}
}

// reply writes a complete response in one write and closes gracefully.
func (s *Server) reply(c *clientConn, resp []byte) {
	if s.opts.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if _, err := c.conn.Write(resp); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write response")
		return
	}
	lingeringClose(c.conn)
}

// lingeringClose half-closes TCP connections and drains what the peer still
// sends, so unread request bytes do not turn the close into a reset that
// discards the response.
func lingeringClose(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	conn.SetReadDeadline(time.Now().Add(closeLinger))
	io.Copy(io.Discard, io.LimitReader(conn, 64*1024))
}

// serveStream sends the multipart headers, then runs the streamer on its own
// goroutine while this one watches the socket for the peer going away.
func (s *Server) serveStream(ctx context.Context, c *clientConn) {
	if s.opts.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if _, err := c.conn.Write(streamHeader(s.opts.Boundary)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write stream headers")
		return
	}
	// Nothing else is expected from the client; reads only detect disconnects.
	c.conn.SetReadDeadline(time.Time{})

	s.streams.Add(1)
	metrics.StreamStarted()
	defer func() {
		s.streams.Add(-1)
		metrics.StreamEnded()
	}()

	started := time.Now()
	c.logger.Info().Int64("active_streams", s.streams.Load()).Msg("Stream client connected")

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := newStreamer(c.conn, s.frames, s.encoder, s.opts, c.logger)
	done := make(chan error, 1)
	go func() {
		err := st.Run(streamCtx)
		// Unblock the watcher below.
		c.conn.SetReadDeadline(time.Now())
		done <- err
	}()

	// A clean EOF is indistinguishable from a half-close: the peer may still
	// be reading, so only a failed write ends the stream then.
	if _, rerr := io.Copy(io.Discard, c.conn); rerr != nil {
		cancel()
	} else {
		c.logger.Debug().Msg("Client closed its write side, streaming until a write fails")
	}
	err := <-done

	ev := c.logger.Info()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Uint64("parts", st.parts).
		Uint64("skipped", st.skipped).
		Uint64("last_seq", st.lastSeq).
		Dur("duration", time.Since(started)).
		Msg("Stream client disconnected")
}
