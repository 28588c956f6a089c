package stream

import (
	"context"
	"encoding/base64"
	"strings"
	"sync/atomic"
	"time"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/encoder"
	"ai-livestream-be/internal/pkg/logger"
)

// VideoProcessor drains the video lane queue, buffers frames into the clip
// encoder and runs the caption throttle. Completed clips go onto the upload
// queue; the lane always flushes the encoder and closes the upload queue on
// exit so the final partial clip survives disconnects.
type VideoProcessor struct {
	sessionId    string
	queue        *Queue[dto.StreamMessage]
	encoder      *encoder.ClipEncoder
	captioner    Captioner
	client       ClientSender
	bus          *AnnotationBus
	uploadQ      *Queue[*encoder.ClipResult]
	lastUploaded *atomic.Pointer[UploadedClipMetadata]
	log          logger.ILogger

	now func() time.Time
}

func NewVideoProcessor(sessionId string, queue *Queue[dto.StreamMessage], enc *encoder.ClipEncoder, captioner Captioner, client ClientSender, bus *AnnotationBus, uploadQ *Queue[*encoder.ClipResult], lastUploaded *atomic.Pointer[UploadedClipMetadata], log logger.ILogger) *VideoProcessor {
	return &VideoProcessor{
		sessionId:    sessionId,
		queue:        queue,
		encoder:      enc,
		captioner:    captioner,
		client:       client,
		bus:          bus,
		uploadQ:      uploadQ,
		lastUploaded: lastUploaded,
		log:          log,
		now:          time.Now,
	}
}

func (p *VideoProcessor) Run(ctx context.Context) error {
	defer p.uploadQ.Close()

	for {
		msg, ok := p.queue.Get(ctx)
		if !ok {
			break
		}
		p.handleFrame(ctx, msg)
	}

	if clip := p.encoder.Flush(); clip != nil {
		p.uploadQ.Put(clip)
	}

	p.log.Info("VideoLane", "Video lane finished", map[string]interface{}{
		"session_id": p.sessionId, "clips": p.encoder.ClipIndex(),
	})
	return nil
}

func (p *VideoProcessor) handleFrame(ctx context.Context, msg dto.StreamMessage) {
	payload := msg.Image
	// Browser clients send data URLs, glasses send bare base64.
	if idx := strings.IndexByte(payload, ','); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	frame, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		p.log.Warn("VideoLane", "Discarding undecodable frame", map[string]interface{}{
			"session_id": p.sessionId, "error": err.Error(),
		})
		return
	}

	ts := p.now()
	if clip := p.encoder.AddFrame(frame, ts); clip != nil {
		p.uploadQ.Put(clip)
	}

	caption, err := p.captioner.Describe(ctx, frame)
	if err != nil {
		p.log.Warn("VideoLane", "Caption request failed", map[string]interface{}{
			"session_id": p.sessionId, "error": err.Error(),
		})
		return
	}
	if caption == nil {
		return
	}

	out := dto.CaptionMessage{
		Type:        "moondream_caption",
		Timestamp:   caption.Timestamp.UTC().Format(time.RFC3339),
		Description: caption.Description,
		FrameNumber: caption.FrameNumber,
	}
	annotation := CaptionAnnotation{
		SessionId:   p.sessionId,
		Timestamp:   caption.Timestamp,
		Description: caption.Description,
		FrameNumber: caption.FrameNumber,
	}
	if meta := p.lastUploaded.Load(); meta != nil {
		out.ClipKey = meta.StorageKey
		annotation.ClipKey = meta.StorageKey
		annotation.ClipBucket = meta.Bucket
		annotation.ClipStart = meta.StartTime
		annotation.ClipEnd = meta.EndTime
	}

	if err := p.client.SendJSON(out); err != nil {
		p.log.Warn("VideoLane", "Failed to push caption", map[string]interface{}{
			"session_id": p.sessionId, "error": err.Error(),
		})
	}
	if p.bus != nil {
		if err := p.bus.PublishCaption(annotation); err != nil {
			p.log.Warn("VideoLane", "Failed to publish caption annotation", map[string]interface{}{
				"session_id": p.sessionId, "error": err.Error(),
			})
		}
	}
}
