package streamcapture

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"facestream/internal/config"
	"facestream/internal/models"
)

// maxConsecutiveErrors failed reads trigger a reopen of the capture device.
const maxConsecutiveErrors = 10

// CameraSource reads frames from an OpenCV VideoCapture. It is meant to be
// driven by a single goroutine.
type CameraSource struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu                sync.Mutex
	cap               *gocv.VideoCapture
	img               gocv.Mat
	consecutiveErrors int
}

// NewCameraSource opens the configured device (index, file or stream URL).
func NewCameraSource(cfg *config.Config) (*CameraSource, error) {
	s := &CameraSource{
		cfg:    cfg,
		logger: log.With().Str("service", "streamcapture").Str("device", cfg.SourceDevice).Logger(),
		img:    gocv.NewMat(),
	}
	if err := s.open(); err != nil {
		s.img.Close()
		return nil, err
	}
	return s, nil
}

func (s *CameraSource) open() error {
	if strings.HasPrefix(s.cfg.SourceDevice, "rtsp://") {
		configureFFmpegOptions()
	}

	var device interface{} = s.cfg.SourceDevice
	if id, err := strconv.Atoi(s.cfg.SourceDevice); err == nil {
		device = id
	}

	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("failed to open video source %s: %w", s.cfg.SourceDevice, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("video capture is not opened for source %s", s.cfg.SourceDevice)
	}

	if s.cfg.SourceWidth > 0 && s.cfg.SourceHeight > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.SourceWidth))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.SourceHeight))
	}
	// Minimal buffer: we always want the newest frame.
	cap.Set(gocv.VideoCaptureBufferSize, 1)

	s.logger.Info().
		Float64("actual_fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened successfully with actual properties")

	s.cap = cap
	return nil
}

// Next reads one frame. A failed or empty read yields models.ErrNoFrame; after
// maxConsecutiveErrors of those the device is reopened.
func (s *CameraSource) Next() (*models.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		if err := s.open(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNoFrame, err)
		}
	}

	if ok := s.cap.Read(&s.img); !ok || s.img.Empty() {
		s.consecutiveErrors++
		if s.consecutiveErrors >= maxConsecutiveErrors {
			s.logger.Warn().
				Int("consecutive_errors", s.consecutiveErrors).
				Msg("Too many consecutive errors, reopening VideoCapture")
			s.cap.Close()
			s.cap = nil
			s.consecutiveErrors = 0
		}
		return nil, models.ErrNoFrame
	}
	s.consecutiveErrors = 0

	img, err := s.img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert captured frame: %w", err)
	}
	return &models.RawFrame{Image: img, CapturedAt: time.Now()}, nil
}

// Close releases the capture device.
func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.cap != nil {
		err = s.cap.Close()
		s.cap = nil
	}
	s.img.Close()
	return err
}

// configureFFmpegOptions sets FFmpeg options for RTSP sources via the
// environment variable read by the OpenCV FFmpeg backend.
func configureFFmpegOptions() {
	ffmpegOptions := map[string]string{
		"rtsp_transport": "tcp",     // Use TCP for more reliable connection
		"buffer_size":    "2097152", // 2MB buffer - smaller for real-time
		"max_delay":      "500000",  // 0.5s max delay
		"stimeout":       "5000000", // 5s timeout
		"flags":          "low_delay",
		"fflags":         "nobuffer+flush_packets",
	}

	opts := make([]string, 0, len(ffmpegOptions))
	for key, value := range ffmpegOptions {
		opts = append(opts, key+";"+value)
	}
	sort.Strings(opts)

	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))
}
