package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"facestream/internal/api"
	"facestream/internal/config"
	"facestream/internal/frameslot"
	"facestream/internal/health"
	"facestream/internal/logging"
	"facestream/internal/overlay"
	"facestream/internal/services/detection"
	"facestream/internal/services/encoding"
	"facestream/internal/services/encoding/cvencoder"
	"facestream/internal/services/frameprocessing"
	"facestream/internal/services/messaging"
	"facestream/internal/services/streamcapture"
	"facestream/internal/stream"
	"facestream/internal/webroot"
)

// Worker wires the video source, the annotation pipeline and every server
// that reads from the frame slot.
type Worker struct {
	config *config.Config
	logger zerolog.Logger

	slot     *frameslot.Slot
	pipeline *frameprocessing.Pipeline
	stream   *stream.Server
	admin    *api.Server
	monitor  *health.Monitor
	nats     *messaging.Service

	closers []func() error
}

// New opens the capture device and loads both classifiers. Any failure here
// is fatal: nothing is served without a working source and detectors.
func New(cfg *config.Config) (*Worker, error) {
	w := &Worker{
		config: cfg,
		logger: logging.NewServiceLogger(cfg, "worker"),
		slot:   frameslot.New(),
	}

	if err := w.init(); err != nil {
		w.close()
		return nil, err
	}
	return w, nil
}

func (w *Worker) init() error {
	cfg := w.config

	format, err := encoding.ParseFormat(cfg.ImageFormat)
	if err != nil {
		return err
	}

	page, err := webroot.Load(cfg.StaticPagePath)
	if err != nil {
		return err
	}

	source, err := streamcapture.NewCameraSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to open video source: %w", err)
	}
	w.closers = append(w.closers, source.Close)

	faces, err := detection.NewCascadeDetector("face", cfg.FaceCascadePath)
	if err != nil {
		return err
	}
	w.closers = append(w.closers, faces.Close)

	eyes, err := detection.NewCascadeDetector("eyes", cfg.EyesCascadePath)
	if err != nil {
		return err
	}
	w.closers = append(w.closers, eyes.Close)

	var base encoding.FrameEncoder
	switch cfg.Encoder {
	case "native":
		base = encoding.NewNative(cfg.ImageQuality)
	default:
		base = cvencoder.New(cfg.ImageQuality)
	}
	encoder := encoding.NewCached(base)

	opts := []frameprocessing.Option{frameprocessing.WithInterval(cfg.PipelineInterval)}
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			return err
		}
		w.nats = svc
		sink := messaging.NewDetectionPublisher(svc.Publish, cfg, logging.NewServiceLogger(cfg, "messaging"))
		opts = append(opts, frameprocessing.WithDetectionSink(sink))
	}

	processor := frameprocessing.NewFrameProcessor(faces, eyes, overlay.NewAnnotator(), logging.NewServiceLogger(cfg, "frameprocessing"))
	w.pipeline = frameprocessing.NewPipeline(source, processor, w.slot, logging.NewServiceLogger(cfg, "pipeline"), opts...)

	w.stream = stream.NewServer(
		stream.OptionsFromConfig(cfg, format, page),
		w.slot,
		encoder,
		logging.NewServiceLogger(cfg, "stream"),
	)

	if cfg.AdminPort > 0 {
		w.admin = api.NewServer(cfg, api.Dependencies{
			Frames:  w.slot,
			Streams: w.stream,
			Encoder: encoder,
			Format:  format,
		})
	}

	if cfg.GRPCHealthPort > 0 {
		w.monitor = health.NewMonitor(w.slot, cfg.HealthCheckInterval, cfg.FrameStaleThreshold, logging.NewServiceLogger(cfg, "health"))
	}

	return nil
}

// Run blocks until ctx is cancelled or one component fails; a failure stops
// all the others.
func (w *Worker) Run(ctx context.Context) error {
	defer w.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.pipeline.Run(ctx)
	})
	g.Go(func() error {
		return w.stream.ListenAndServe(ctx)
	})

	if w.admin != nil {
		g.Go(w.admin.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
			defer cancel()
			return w.admin.Shutdown(shutdownCtx)
		})
	}

	if w.monitor != nil {
		addr := net.JoinHostPort("", strconv.Itoa(w.config.GRPCHealthPort))
		g.Go(func() error {
			return w.monitor.Run(ctx)
		})
		g.Go(func() error {
			return health.ListenAndServe(ctx, addr, w.monitor.HealthServer(), w.logger)
		})
	}

	w.logger.Info().
		Str("stream_addr", w.config.StreamAddr).
		Str("stream_path", w.config.StreamPath).
		Int("admin_port", w.config.AdminPort).
		Int("grpc_health_port", w.config.GRPCHealthPort).
		Bool("nats_enabled", w.config.NatsEnabled).
		Msg("Worker started")

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (w *Worker) close() {
	if w.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.nats.Shutdown(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("NATS shutdown incomplete")
		}
		cancel()
		w.nats = nil
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	w.closers = nil
}
