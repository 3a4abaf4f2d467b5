package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"facestream/internal/config"
	"facestream/internal/models"
)

// Service owns the NATS connection.
type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("facestream-" + cfg.InstanceID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NatsURL, err)
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	// Try graceful drain, fallback to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}
	for s.conn.IsDraining() {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// PublishFunc sends one JSON-encodable payload to a subject.
type PublishFunc func(subject string, data interface{}) error

// DetectionPublisher turns annotated frames into detection events, rate
// limited to one per cooldown. It is called from the pipeline goroutine only,
// but the mutex keeps it safe for any caller.
type DetectionPublisher struct {
	publish    PublishFunc
	subject    string
	instanceID string
	cooldown   time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	mu   sync.Mutex
	last time.Time
	sent uint64
}

func NewDetectionPublisher(publish PublishFunc, cfg *config.Config, logger zerolog.Logger) *DetectionPublisher {
	return &DetectionPublisher{
		publish:    publish,
		subject:    cfg.NatsDetectionsSubject,
		instanceID: cfg.InstanceID,
		cooldown:   cfg.DetectionsCooldown,
		logger:     logger,
		now:        time.Now,
	}
}

// PublishDetections emits an event for f unless it has no faces or the
// previous event is younger than the cooldown.
func (p *DetectionPublisher) PublishDetections(f *models.Frame) error {
	if f == nil || len(f.Regions) == 0 {
		return nil
	}

	p.mu.Lock()
	now := p.now()
	if !p.last.IsZero() && now.Sub(p.last) < p.cooldown {
		p.mu.Unlock()
		return nil
	}
	p.last = now
	p.mu.Unlock()

	ev := models.NewDetectionEvent(p.instanceID, f)
	if err := p.publish(p.subject, ev); err != nil {
		return fmt.Errorf("failed to publish detection event: %w", err)
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()

	p.logger.Debug().
		Uint64("seq", f.Seq).
		Int("faces", len(ev.Faces)).
		Str("subject", p.subject).
		Msg("Detection event published")
	return nil
}

// Sent returns the number of events delivered to the bus.
func (p *DetectionPublisher) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}
