package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"
	"testing"
	"time"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/encoder"
	"ai-livestream-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newVideoFixture(t *testing.T, everyN int, clipDuration time.Duration) (*VideoProcessor, *Queue[dto.StreamMessage], *Queue[*encoder.ClipResult], *fakeSender, *capturePublisher) {
	t.Helper()
	q := NewQueue[dto.StreamMessage]()
	uploadQ := NewQueue[*encoder.ClipResult]()
	sender := &fakeSender{}
	pub := newCapturePublisher()
	enc := encoder.NewClipEncoder(clipDuration, 24, logger.NewNopLogger())
	p := NewVideoProcessor("s1", q, enc, &fakeCaptioner{everyN: everyN}, sender, NewAnnotationBus(pub),
		uploadQ, &atomic.Pointer[UploadedClipMetadata]{}, logger.NewNopLogger())
	return p, q, uploadQ, sender, pub
}

func TestVideoProcessorCaptionsEveryNthFrame(t *testing.T) {
	p, q, _, sender, pub := newVideoFixture(t, 10, time.Hour)

	frame := testFrame(t)
	for i := 0; i < 25; i++ {
		q.Put(dto.StreamMessage{Image: frame})
	}
	q.Close()
	require.NoError(t, p.Run(context.Background()))

	var captions []dto.CaptionMessage
	for _, m := range sender.sent() {
		if cm, ok := m.(dto.CaptionMessage); ok {
			captions = append(captions, cm)
		}
	}
	require.Len(t, captions, 2)
	assert.Equal(t, "moondream_caption", captions[0].Type)
	assert.Equal(t, 10, captions[0].FrameNumber)
	assert.Equal(t, 20, captions[1].FrameNumber)

	assert.Len(t, pub.topic(TopicCaptions), 2)
}

func TestVideoProcessorEncodesClipsAtBoundary(t *testing.T) {
	p, q, uploadQ, _, _ := newVideoFixture(t, 1000, 2*time.Second)

	// Frames 500ms apart: t=2s crosses the 2s window, then two leftovers.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	p.now = func() time.Time {
		ts := base.Add(time.Duration(step) * 500 * time.Millisecond)
		step++
		return ts
	}

	frame := testFrame(t)
	for i := 0; i < 7; i++ {
		q.Put(dto.StreamMessage{Image: frame})
	}
	q.Close()
	require.NoError(t, p.Run(context.Background()))

	// One full clip plus the flushed remainder.
	first, ok := uploadQ.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 5, first.FrameCount)
	assert.NotEmpty(t, first.Video)
	assert.NotEmpty(t, first.Thumbnail)

	second, ok := uploadQ.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, 2, second.FrameCount)

	_, ok = uploadQ.Get(context.Background())
	assert.False(t, ok, "upload queue should be closed after the lane exits")
}

func TestVideoProcessorStripsDataURLPrefix(t *testing.T) {
	p, q, uploadQ, _, _ := newVideoFixture(t, 1000, time.Hour)

	q.Put(dto.StreamMessage{Image: "data:image/jpeg;base64," + testFrame(t)})
	q.Put(dto.StreamMessage{Image: "!!!garbage!!!"})
	q.Close()
	require.NoError(t, p.Run(context.Background()))

	// The valid frame survives into the flushed clip; the garbage one is gone.
	clip, ok := uploadQ.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, clip.FrameCount)
}

func TestVideoProcessorTagsCaptionWithUploadedClip(t *testing.T) {
	p, q, _, sender, _ := newVideoFixture(t, 1, time.Hour)

	meta := &UploadedClipMetadata{StorageKey: "s1/clips/clip_0000.avi", Bucket: "b"}
	p.lastUploaded.Store(meta)

	q.Put(dto.StreamMessage{Image: testFrame(t)})
	q.Close()
	require.NoError(t, p.Run(context.Background()))

	var captions []dto.CaptionMessage
	for _, m := range sender.sent() {
		if cm, ok := m.(dto.CaptionMessage); ok {
			captions = append(captions, cm)
		}
	}
	require.Len(t, captions, 1)
	assert.Equal(t, "s1/clips/clip_0000.avi", captions[0].ClipKey)
}

func TestVideoProcessorClosesUploadQueueOnCancel(t *testing.T) {
	p, q, uploadQ, _, _ := newVideoFixture(t, 1000, time.Hour)

	q.Put(dto.StreamMessage{Image: testFrame(t)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	// Let the frame land, then cancel without closing the lane queue.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("video lane did not exit on cancellation")
	}

	// The buffered frame was flushed into a final clip before close.
	clip, ok := uploadQ.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, clip.FrameCount)
	assert.True(t, uploadQ.Closed())
}
