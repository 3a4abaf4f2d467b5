package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	InstanceID  string
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Video source
	// Device index ("0"), file path or stream URL understood by OpenCV.
	SourceDevice string
	SourceWidth  int
	SourceHeight int

	// Detection
	FaceCascadePath string
	EyesCascadePath string

	// Annotation pipeline
	PipelineInterval time.Duration

	// Stream endpoint (raw TCP, minimal request-line protocol)
	StreamAddr            string
	StreamPath            string
	StreamBoundary        string
	StreamInterval        time.Duration
	StreamReadTimeout     time.Duration
	StreamWriteTimeout    time.Duration
	StreamMaxRequestBytes int
	StaticPagePath        string // empty = embedded page

	// Encoding
	ImageFormat  string
	ImageQuality int // JPEG quality (1-100)
	Encoder      string

	// Admin API
	AdminHost string
	AdminPort int // 0 disables

	// gRPC health
	GRPCHealthPort int // 0 disables

	// NATS (detection events)
	NatsEnabled           bool
	NatsURL               string
	NatsConnectTimeout    time.Duration
	NatsReconnectWait     time.Duration
	NatsMaxReconnects     int
	NatsDetectionsSubject string
	DetectionsCooldown    time.Duration

	// Health Check
	HealthCheckInterval time.Duration
	FrameStaleThreshold time.Duration

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		InstanceID:  getEnv("INSTANCE_ID", "facestream-1"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8090),

		// Video source
		SourceDevice: getEnv("SOURCE_DEVICE", "0"),
		SourceWidth:  getEnvInt("SOURCE_WIDTH", 0),
		SourceHeight: getEnvInt("SOURCE_HEIGHT", 0),

		// Detection
		FaceCascadePath: getEnv("FACE_CASCADE_PATH", "haarcascades/haarcascade_frontalface_alt.xml"),
		EyesCascadePath: getEnv("EYES_CASCADE_PATH", "haarcascades/haarcascade_eye_tree_eyeglasses.xml"),

		// Annotation pipeline: ~25 iterations/second
		PipelineInterval: getEnvDuration("PIPELINE_INTERVAL", 40*time.Millisecond),

		// Stream endpoint
		StreamAddr:            getEnv("STREAM_ADDR", "localhost:8080"),
		StreamPath:            getEnv("STREAM_PATH", "/frames"),
		StreamBoundary:        getEnv("STREAM_BOUNDARY", "MJPEG-DATA"),
		StreamInterval:        getEnvDuration("STREAM_INTERVAL", 20*time.Millisecond),
		StreamReadTimeout:     getEnvDuration("STREAM_READ_TIMEOUT", 10*time.Second),
		StreamWriteTimeout:    getEnvDuration("STREAM_WRITE_TIMEOUT", 10*time.Second),
		StreamMaxRequestBytes: getEnvInt("STREAM_MAX_REQUEST_BYTES", 8*1024),
		StaticPagePath:        getEnv("STATIC_PAGE_PATH", ""),

		// Encoding
		ImageFormat:  getEnv("IMAGE_FORMAT", "jpeg"),
		ImageQuality: getEnvInt("IMAGE_QUALITY", 90),
		Encoder:      getEnv("ENCODER", "opencv"),

		// Admin API
		AdminHost: getEnv("ADMIN_HOST", "localhost"),
		AdminPort: getEnvInt("ADMIN_PORT", 8081),

		// gRPC health
		GRPCHealthPort: getEnvInt("GRPC_HEALTH_PORT", 0),

		// NATS
		NatsEnabled:           getEnvBool("NATS_ENABLED", false),
		NatsURL:               getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout:    getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:     getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:     getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDetectionsSubject: getEnv("NATS_DETECTIONS_SUBJECT", "facestream.detections"),
		DetectionsCooldown:    getEnvDuration("DETECTIONS_COOLDOWN", 1*time.Second),

		// Health Check
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Second),
		FrameStaleThreshold: getEnvDuration("FRAME_STALE_THRESHOLD", 10*time.Second),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports the first setting that would make the server misbehave.
func (c *Config) Validate() error {
	if c.PipelineInterval <= 0 {
		return fmt.Errorf("PIPELINE_INTERVAL must be positive, got %s", c.PipelineInterval)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("STREAM_INTERVAL must be positive, got %s", c.StreamInterval)
	}
	if c.StreamMaxRequestBytes < 16 {
		return fmt.Errorf("STREAM_MAX_REQUEST_BYTES too small: %d", c.StreamMaxRequestBytes)
	}
	if !strings.HasPrefix(c.StreamPath, "/") || c.StreamPath == "/" {
		return fmt.Errorf("STREAM_PATH must be an absolute path other than /, got %q", c.StreamPath)
	}
	if c.StreamBoundary == "" || strings.ContainsAny(c.StreamBoundary, "\"\r\n") {
		return fmt.Errorf("STREAM_BOUNDARY is not a valid boundary token: %q", c.StreamBoundary)
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be within 1-100, got %d", c.ImageQuality)
	}
	switch strings.ToLower(c.ImageFormat) {
	case "jpeg", "jpg", "png", "bmp":
	default:
		return fmt.Errorf("IMAGE_FORMAT must be jpeg, png or bmp, got %q", c.ImageFormat)
	}
	switch c.Encoder {
	case "opencv", "native":
	default:
		return fmt.Errorf("ENCODER must be opencv or native, got %q", c.Encoder)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
