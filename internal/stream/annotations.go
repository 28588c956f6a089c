package stream

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Watermill topics the lanes publish annotations on and the batcher consumes.
const (
	TopicTranscripts = "annotations.transcripts"
	TopicCaptions    = "annotations.captions"
)

// TranscriptAnnotation is one final transcript segment.
type TranscriptAnnotation struct {
	SessionId string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Speaker   string    `json:"speaker"`
}

// CaptionAnnotation is one scene description tied to a frame and, when the
// upload pipeline has caught up, the clip that contains it.
type CaptionAnnotation struct {
	SessionId   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	FrameNumber int       `json:"frame_number"`
	ClipKey     string    `json:"clip_key,omitempty"`
	ClipBucket  string    `json:"clip_bucket,omitempty"`
	ClipStart   time.Time `json:"clip_start,omitempty"`
	ClipEnd     time.Time `json:"clip_end,omitempty"`
}

// AnnotationBus wraps the in-process pub/sub used between the lanes and the
// batcher.
type AnnotationBus struct {
	publisher message.Publisher
}

func NewAnnotationBus(publisher message.Publisher) *AnnotationBus {
	return &AnnotationBus{publisher: publisher}
}

func (b *AnnotationBus) PublishTranscript(a TranscriptAnnotation) error {
	return b.publish(TopicTranscripts, a)
}

func (b *AnnotationBus) PublishCaption(a CaptionAnnotation) error {
	return b.publish(TopicCaptions, a)
}

func (b *AnnotationBus) publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}
