package stream

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"facestream/internal/metrics"
	"facestream/internal/models"
	"facestream/internal/services/encoding"
)

// FrameReader gives the latest published frame, if any.
type FrameReader interface {
	Current() (*models.Frame, bool)
}

// deadlineWriter is the part of net.Conn the streamer needs.
type deadlineWriter interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// Streamer writes multipart parts to one client until a write fails or its
// context ends. Each part is three writes issued back to back from the same
// goroutine, so parts never interleave.
type Streamer struct {
	w            deadlineWriter
	frames       FrameReader
	encoder      encoding.FrameEncoder
	format       encoding.Format
	header       []byte
	interval     time.Duration
	writeTimeout time.Duration
	logger       zerolog.Logger

	parts   uint64
	skipped uint64
	lastSeq uint64
}

func newStreamer(w deadlineWriter, frames FrameReader, enc encoding.FrameEncoder, opts Options, logger zerolog.Logger) *Streamer {
	return &Streamer{
		w:            w,
		frames:       frames,
		encoder:      enc,
		format:       opts.Format,
		header:       partHeader(opts.Boundary, opts.Format),
		interval:     opts.StreamInterval,
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
	}
}

// Run streams until ctx is done (nil) or the transport fails (the write error).
func (s *Streamer) Run(ctx context.Context) error {
	for {
		if err := s.writePart(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

// writePart sends the current frame. An empty slot or an encode failure skips
// the iteration without touching the socket; only write errors are returned.
func (s *Streamer) writePart() error {
	frame, ok := s.frames.Current()
	if !ok {
		s.skipped++
		metrics.RecordSkip(metrics.SkipEmptySlot)
		s.logger.Debug().Msg("No frame published yet, skipping part")
		return nil
	}

	data, err := s.encoder.Encode(frame, s.format)
	if err != nil {
		s.skipped++
		metrics.RecordSkip(metrics.SkipEncodeError)
		s.logger.Warn().Err(err).Uint64("seq", frame.Seq).Msg("Frame encoding failed, skipping part")
		return nil
	}

	if err := s.write(s.header); err != nil {
		return fmt.Errorf("write part header: %w", err)
	}
	if err := s.write(data); err != nil {
		return fmt.Errorf("write part body: %w", err)
	}
	if err := s.write(partTrailer); err != nil {
		return fmt.Errorf("write part trailer: %w", err)
	}

	s.parts++
	s.lastSeq = frame.Seq
	metrics.RecordPart()
	return nil
}

func (s *Streamer) write(p []byte) error {
	if s.writeTimeout > 0 {
		if err := s.w.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.w.Write(p)
	return err
}
