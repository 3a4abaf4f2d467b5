package frameprocessing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"facestream/internal/metrics"
	"facestream/internal/models"
)

// DefaultInterval paces the loop at roughly 25 iterations per second.
const DefaultInterval = 40 * time.Millisecond

// FrameSource produces raw captures. Next returns models.ErrNoFrame when the
// device has nothing this cycle.
type FrameSource interface {
	Next() (*models.RawFrame, error)
}

// FramePublisher receives finished frames.
type FramePublisher interface {
	Publish(f *models.Frame)
}

// DetectionSink is told about published frames that contain detections.
type DetectionSink interface {
	PublishDetections(f *models.Frame) error
}

// Pipeline is the single producer: capture, annotate, publish, sleep, forever.
type Pipeline struct {
	source    FrameSource
	processor *FrameProcessor
	out       FramePublisher
	events    DetectionSink
	interval  time.Duration
	logger    zerolog.Logger

	seq uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInterval sets the fixed delay between iterations.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithDetectionSink forwards frames with detections to sink after publishing.
func WithDetectionSink(sink DetectionSink) Option {
	return func(p *Pipeline) { p.events = sink }
}

func NewPipeline(source FrameSource, processor *FrameProcessor, out FramePublisher, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		processor: processor,
		out:       out,
		interval:  DefaultInterval,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loops until ctx is cancelled. No single iteration failure stops it.
// The delay after each iteration is fixed; slow iterations are not caught up.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("Annotation pipeline started")

	for {
		p.runIteration()

		select {
		case <-ctx.Done():
			p.logger.Info().Uint64("frames", p.seq).Msg("Annotation pipeline stopped")
			return nil
		case <-time.After(p.interval):
		}
	}
}

// runIteration executes one capture-to-publish cycle with panic recovery.
func (p *Pipeline) runIteration() {
	start := time.Now()
	result := metrics.ResultPanic
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Pipeline iteration panic recovered")
		}
		metrics.RecordPipelineIteration(result, time.Since(start).Seconds())
	}()

	result = p.step()
}

func (p *Pipeline) step() string {
	raw, err := p.source.Next()
	if errors.Is(err, models.ErrNoFrame) {
		p.logger.Debug().Err(err).Msg("No frame from source this cycle")
		return metrics.ResultNoFrame
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("Frame source failed")
		return metrics.ResultSourceError
	}

	frame, err := p.processor.ProcessFrame(raw)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Frame processing failed, skipping iteration")
		return metrics.ResultDetectError
	}

	p.seq++
	frame.Seq = p.seq
	p.out.Publish(frame)

	p.logger.Debug().
		Uint64("seq", frame.Seq).
		Int("faces", len(frame.Regions)).
		Int("eyes", frame.EyeCount()).
		Msg("Frame published")

	if p.events != nil && len(frame.Regions) > 0 {
		if err := p.events.PublishDetections(frame); err != nil {
			p.logger.Warn().Err(fmt.Errorf("detection event: %w", err)).Uint64("seq", frame.Seq).Msg("Failed to publish detection event")
		}
	}
	return metrics.ResultPublished
}
