package frameslot

import (
	"bytes"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facestream/internal/models"
)

func filledFrame(seq uint64, value byte) *models.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return &models.Frame{Seq: seq, Image: img, CapturedAt: time.Now()}
}

func TestEmptySlot(t *testing.T) {
	s := New()

	f, ok := s.Current()
	assert.False(t, ok)
	assert.Nil(t, f)
	assert.Zero(t, s.Published())
	assert.True(t, s.LastPublished().IsZero())
	assert.True(t, s.Stale(time.Hour))
}

func TestPublishReplaces(t *testing.T) {
	var s Slot

	first := filledFrame(1, 0x11)
	second := filledFrame(2, 0x22)

	s.Publish(first)
	got, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, first, got)

	s.Publish(second)
	got, ok = s.Current()
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, uint64(2), s.Published())
	assert.False(t, s.Stale(time.Minute))
}

func TestPublishNilIsIgnored(t *testing.T) {
	s := New()
	s.Publish(nil)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Zero(t, s.Published())
}

// Readers racing a writer must only ever see whole frames: every pixel of an
// observed frame carries the same value.
func TestConcurrentReadersNeverSeeTornFrames(t *testing.T) {
	s := New()
	s.Publish(filledFrame(0, 0))

	const readers = 8
	var stop atomic.Bool
	var wg sync.WaitGroup
	var torn atomic.Int64
	var reads atomic.Int64

	// started is released once every reader has completed a read, so the
	// publishes below always race live readers even on a single CPU.
	var started sync.WaitGroup
	started.Add(readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := true
			for !stop.Load() {
				f, ok := s.Current()
				if !ok {
					continue
				}
				want := bytes.Repeat([]byte{f.Image.Pix[0]}, len(f.Image.Pix))
				if !bytes.Equal(want, f.Image.Pix) {
					torn.Add(1)
				}
				reads.Add(1)
				if first {
					first = false
					started.Done()
				}
			}
		}()
	}

	started.Wait()
	for seq := uint64(1); seq <= 200; seq++ {
		s.Publish(filledFrame(seq, byte(seq)))
		runtime.Gosched()
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, torn.Load())
	assert.GreaterOrEqual(t, reads.Load(), int64(readers))
	assert.Equal(t, uint64(201), s.Published())
}

// Publishing must not wait on readers, however many are polling.
func TestPublishDoesNotBlockOnReaders(t *testing.T) {
	s := New()

	var stop atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				s.Current()
			}
		}()
	}
	defer func() {
		stop.Store(true)
		wg.Wait()
	}()

	frames := make([]*models.Frame, 1000)
	for i := range frames {
		frames[i] = &models.Frame{Seq: uint64(i)}
	}

	start := time.Now()
	for _, f := range frames {
		s.Publish(f)
	}
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "1000 publishes took %v", elapsed)
}
