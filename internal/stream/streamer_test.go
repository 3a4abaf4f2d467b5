package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facestream/internal/frameslot"
	"facestream/internal/models"
	"facestream/internal/services/encoding"
)

// seqEncoder encodes a frame as "frame-<seq>".
type seqEncoder struct {
	err error
}

func (e seqEncoder) Encode(f *models.Frame, _ encoding.Format) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte(fmt.Sprintf("frame-%d", f.Seq)), nil
}

// recordingWriter keeps every write separately and can fail on the n-th one.
type recordingWriter struct {
	mu        sync.Mutex
	writes    [][]byte
	deadlines int
	failAt    int // 1-based; 0 never fails
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.writes)+1 == w.failAt {
		return 0, errors.New("broken pipe")
	}
	w.writes = append(w.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) SetWriteDeadline(time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadlines++
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func testOptions() Options {
	return Options{
		StreamPath:      "/frames",
		Boundary:        "MJPEG-DATA",
		Format:          encoding.FormatJPEG,
		StreamInterval:  5 * time.Millisecond,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    time.Second,
		MaxRequestBytes: 8 * 1024,
		StaticPage:      []byte("<html>ok</html>"),
	}
}

func TestStreamerSkipsEmptySlot(t *testing.T) {
	w := &recordingWriter{}
	st := newStreamer(w, frameslot.New(), seqEncoder{}, testOptions(), zerolog.Nop())

	require.NoError(t, st.writePart())
	require.NoError(t, st.writePart())

	assert.Zero(t, w.count(), "nothing is written until a frame exists")
	assert.Equal(t, uint64(2), st.skipped)
	assert.Zero(t, st.parts)
}

func TestStreamerWritesOnePartAsThreeWrites(t *testing.T) {
	slot := frameslot.New()
	slot.Publish(&models.Frame{Seq: 7})
	w := &recordingWriter{}
	st := newStreamer(w, slot, seqEncoder{}, testOptions(), zerolog.Nop())

	require.NoError(t, st.writePart())

	require.Equal(t, 3, w.count())
	assert.Equal(t, "--MJPEG-DATA\r\nContent-Type: image/jpeg\r\n\r\n", string(w.writes[0]))
	assert.Equal(t, "frame-7", string(w.writes[1]))
	assert.Equal(t, "\r\n", string(w.writes[2]))
	assert.Equal(t, 3, w.deadlines, "each write gets its own deadline")
	assert.Equal(t, uint64(1), st.parts)
	assert.Equal(t, uint64(7), st.lastSeq)
}

func TestStreamerResendsUnchangedFrame(t *testing.T) {
	slot := frameslot.New()
	slot.Publish(&models.Frame{Seq: 1})
	w := &recordingWriter{}
	st := newStreamer(w, slot, seqEncoder{}, testOptions(), zerolog.Nop())

	require.NoError(t, st.writePart())
	require.NoError(t, st.writePart())
	slot.Publish(&models.Frame{Seq: 2})
	require.NoError(t, st.writePart())

	require.Equal(t, 9, w.count())
	assert.Equal(t, "frame-1", string(w.writes[1]))
	assert.Equal(t, "frame-1", string(w.writes[4]))
	assert.Equal(t, "frame-2", string(w.writes[7]))
}

func TestStreamerSkipsEncodeFailure(t *testing.T) {
	slot := frameslot.New()
	slot.Publish(&models.Frame{Seq: 1})
	w := &recordingWriter{}
	st := newStreamer(w, slot, seqEncoder{err: errors.New("codec exploded")}, testOptions(), zerolog.Nop())

	require.NoError(t, st.writePart())

	assert.Zero(t, w.count())
	assert.Equal(t, uint64(1), st.skipped)
}

func TestStreamerStopsOnWriteFailure(t *testing.T) {
	slot := frameslot.New()
	slot.Publish(&models.Frame{Seq: 3})

	for failAt, stage := range map[int]string{1: "header", 2: "body", 3: "trailer"} {
		t.Run(stage, func(t *testing.T) {
			w := &recordingWriter{failAt: failAt}
			st := newStreamer(w, slot, seqEncoder{}, testOptions(), zerolog.Nop())

			err := st.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "write part "+stage)
			assert.Zero(t, st.parts)
		})
	}
}

func TestStreamerRunStopsOnCancel(t *testing.T) {
	slot := frameslot.New()
	slot.Publish(&models.Frame{Seq: 1})
	w := &recordingWriter{}
	st := newStreamer(w, slot, seqEncoder{}, testOptions(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Run(ctx) }()

	require.Eventually(t, func() bool { return w.count() >= 6 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("streamer did not stop")
	}
	assert.Zero(t, w.count()%3, "parts are never cut short")
}
