package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"time"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/icza/mjpeg"
	xdraw "golang.org/x/image/draw"
)

const (
	thumbnailMaxWidth = 320
	thumbnailQuality  = 80
)

// ClipResult is one encoded clip handed to the upload pipeline. Consumed
// exactly once; not retained by the encoder after handoff.
type ClipResult struct {
	Video      []byte
	StartTime  time.Time
	EndTime    time.Time
	Index      int
	Thumbnail  []byte
	FrameCount int
}

type bufferedFrame struct {
	jpegData []byte
	img      image.Image
	ts       time.Time
}

// ClipEncoder buffers decoded frames and encodes them into MJPEG AVI clips
// once the buffered window spans the configured wall-clock duration.
//
// Clip boundaries are wall-clock timestamp differences, not frame counts;
// playback always runs at the fixed nominal FPS, so irregular frame arrival
// yields a playback duration that differs from real capture time. That is
// documented behavior, not a defect.
//
// Not safe for concurrent use; one encoder serves one video lane.
type ClipEncoder struct {
	clipDuration time.Duration
	fps          int
	log          logger.ILogger

	frames      []bufferedFrame
	windowStart time.Time
	clipIndex   int
}

func NewClipEncoder(clipDuration time.Duration, fps int, log logger.ILogger) *ClipEncoder {
	return &ClipEncoder{
		clipDuration: clipDuration,
		fps:          fps,
		log:          log,
	}
}

// AddFrame appends a JPEG frame captured at ts. An undecodable frame is
// discarded with a warning and never affects encoder state. When the buffered
// window reaches the clip duration the whole buffer is encoded and returned,
// and the encoder resets for the next clip.
func (e *ClipEncoder) AddFrame(jpegData []byte, ts time.Time) *ClipResult {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		e.log.Warn("Encoder", "Failed to decode frame", map[string]interface{}{"error": err.Error()})
		return nil
	}

	if len(e.frames) == 0 {
		e.windowStart = ts
	}
	e.frames = append(e.frames, bufferedFrame{jpegData: jpegData, img: img, ts: ts})

	if ts.Sub(e.windowStart) >= e.clipDuration {
		return e.encodeClip()
	}
	return nil
}

// Flush encodes whatever is buffered regardless of elapsed duration. Called
// on disconnect to capture the final partial clip. No-op on an empty buffer.
func (e *ClipEncoder) Flush() *ClipResult {
	if len(e.frames) == 0 {
		return nil
	}
	e.log.Info("Encoder", "Flushing remaining frames", map[string]interface{}{"frames": len(e.frames)})
	return e.encodeClip()
}

// BufferedFrames reports how many frames are waiting in the current window.
func (e *ClipEncoder) BufferedFrames() int {
	return len(e.frames)
}

// ClipIndex reports the index the next completed clip will carry.
func (e *ClipEncoder) ClipIndex() int {
	return e.clipIndex
}

// Reset drops all buffered state and restarts clip numbering.
func (e *ClipEncoder) Reset() {
	e.frames = nil
	e.windowStart = time.Time{}
	e.clipIndex = 0
}

func (e *ClipEncoder) encodeClip() *ClipResult {
	frames := e.frames
	currentIndex := e.clipIndex

	// Reset before any early return so a failed encode never wedges the lane.
	e.frames = nil
	e.windowStart = time.Time{}
	e.clipIndex++

	// Thumbnail comes from the middle of the window, taken before the
	// buffer is consumed.
	thumbnail := e.encodeThumbnail(frames[len(frames)/2].img)

	video, err := encodeAVI(frames, e.fps)
	if err != nil {
		e.log.Error("Encoder", "Clip encode failed", map[string]interface{}{
			"clip_index": currentIndex, "error": err.Error(),
		})
		return nil
	}

	result := &ClipResult{
		Video:      video,
		StartTime:  frames[0].ts,
		EndTime:    frames[len(frames)-1].ts,
		Index:      currentIndex,
		Thumbnail:  thumbnail,
		FrameCount: len(frames),
	}

	e.log.Info("Encoder", "Clip encoded", map[string]interface{}{
		"clip_index": currentIndex,
		"frames":     result.FrameCount,
		"bytes":      len(result.Video),
		"thumb":      len(result.Thumbnail),
	})
	return result
}

func (e *ClipEncoder) encodeThumbnail(src image.Image) []byte {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > thumbnailMaxWidth {
		h = h * thumbnailMaxWidth / w
		w = thumbnailMaxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		e.log.Warn("Encoder", "Thumbnail encode failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return buf.Bytes()
}

// encodeAVI writes the buffered JPEG frames into an MJPEG AVI container at
// the nominal frame rate. The writer needs a real file path, so the clip goes
// through a temp file the same way the capture never touches disk otherwise.
func encodeAVI(frames []bufferedFrame, fps int) ([]byte, error) {
	first := frames[0].img.Bounds()

	tmp, err := os.CreateTemp("", "clip-*.avi")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	aw, err := mjpeg.New(tmpPath, int32(first.Dx()), int32(first.Dy()), int32(fps))
	if err != nil {
		return nil, err
	}

	for _, f := range frames {
		if err := aw.AddFrame(f.jpegData); err != nil {
			aw.Close()
			return nil, err
		}
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(tmpPath)
}
