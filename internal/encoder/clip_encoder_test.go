package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestEncoderBuffersUntilDurationBoundary(t *testing.T) {
	e := NewClipEncoder(10*time.Second, 24, logger.NewNopLogger())
	frame := jpegFrame(t, 64, 48)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// 9.5 seconds of frames, no clip yet.
	var result *ClipResult
	for i := 0; i < 20; i++ {
		result = e.AddFrame(frame, base.Add(time.Duration(i)*500*time.Millisecond))
		require.Nil(t, result)
	}
	assert.Equal(t, 20, e.BufferedFrames())

	// The frame at t=10s crosses the boundary and closes the clip.
	result = e.AddFrame(frame, base.Add(10*time.Second))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Index)
	assert.Equal(t, 21, result.FrameCount)
	assert.Equal(t, base, result.StartTime)
	assert.Equal(t, base.Add(10*time.Second), result.EndTime)
	assert.NotEmpty(t, result.Video)
	assert.Equal(t, 0, e.BufferedFrames())
	assert.Equal(t, 1, e.ClipIndex())
}

func TestEncoderClipIndexIncrements(t *testing.T) {
	e := NewClipEncoder(time.Second, 24, logger.NewNopLogger())
	frame := jpegFrame(t, 32, 32)
	base := time.Now()

	first := e.AddFrame(frame, base)
	require.Nil(t, first)
	first = e.AddFrame(frame, base.Add(time.Second))
	require.NotNil(t, first)

	second := e.AddFrame(frame, base.Add(2*time.Second))
	require.Nil(t, second)
	second = e.AddFrame(frame, base.Add(3*time.Second))
	require.NotNil(t, second)

	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, second.Index)
}

func TestEncoderFlushReturnsPartialClip(t *testing.T) {
	e := NewClipEncoder(time.Hour, 24, logger.NewNopLogger())
	frame := jpegFrame(t, 32, 32)

	require.Nil(t, e.Flush(), "flush on empty buffer is a no-op")

	e.AddFrame(frame, time.Now())
	e.AddFrame(frame, time.Now())

	result := e.Flush()
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FrameCount)
	assert.Equal(t, 0, e.BufferedFrames())

	require.Nil(t, e.Flush())
}

func TestEncoderProducesThumbnailFromMiddleFrame(t *testing.T) {
	e := NewClipEncoder(time.Hour, 24, logger.NewNopLogger())
	// Wider than the thumbnail cap, so it gets scaled down.
	frame := jpegFrame(t, 640, 480)
	e.AddFrame(frame, time.Now())

	result := e.Flush()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Thumbnail)

	thumb, err := jpeg.Decode(bytes.NewReader(result.Thumbnail))
	require.NoError(t, err)
	assert.Equal(t, 320, thumb.Bounds().Dx())
	assert.Equal(t, 240, thumb.Bounds().Dy())
}

func TestEncoderDiscardsUndecodableFrame(t *testing.T) {
	e := NewClipEncoder(time.Hour, 24, logger.NewNopLogger())

	require.Nil(t, e.AddFrame([]byte("not a jpeg"), time.Now()))
	assert.Equal(t, 0, e.BufferedFrames())
}

func TestEncoderOutputIsPlayableAVI(t *testing.T) {
	e := NewClipEncoder(time.Hour, 24, logger.NewNopLogger())
	frame := jpegFrame(t, 64, 48)
	for i := 0; i < 5; i++ {
		e.AddFrame(frame, time.Now())
	}

	result := e.Flush()
	require.NotNil(t, result)
	require.True(t, len(result.Video) > 12)
	assert.Equal(t, "RIFF", string(result.Video[:4]))
	assert.Equal(t, "AVI ", string(result.Video[8:12]))
}

func TestEncoderReset(t *testing.T) {
	e := NewClipEncoder(time.Second, 24, logger.NewNopLogger())
	frame := jpegFrame(t, 32, 32)
	base := time.Now()

	e.AddFrame(frame, base)
	require.NotNil(t, e.AddFrame(frame, base.Add(time.Second)))
	assert.Equal(t, 1, e.ClipIndex())

	e.AddFrame(frame, base.Add(2*time.Second))
	e.Reset()
	assert.Equal(t, 0, e.BufferedFrames())
	assert.Equal(t, 0, e.ClipIndex())
}
