package stream

import (
	"context"
	"time"

	"ai-livestream-be/pkg/events"
	"ai-livestream-be/pkg/memory"
	"ai-livestream-be/pkg/stt"
	"ai-livestream-be/pkg/vision"
)

// Transcriber is the speech-to-text collaborator for one session.
type Transcriber interface {
	Start(ctx context.Context) error
	Active() bool
	Send(audio []byte) error
	Finish() error
	Events() <-chan stt.TranscriptEvent
	Close() error
}

// Captioner is the vision collaborator. It throttles internally and returns
// (nil, nil) for frames it chooses to skip.
type Captioner interface {
	Describe(ctx context.Context, jpegBytes []byte) (*vision.Caption, error)
}

// BlobStore persists clip artifacts.
type BlobStore interface {
	Configured() bool
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
}

// MemoryStore persists coalesced annotation records.
type MemoryStore interface {
	Add(ctx context.Context, content, userId string, metadata map[string]interface{}) error
}

var _ MemoryStore = (*memory.Client)(nil)

// EventPublisher announces domain events; best effort, may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ClientSender pushes one JSON message to the connected client. Writes are
// serialized by the implementation.
type ClientSender interface {
	SendJSON(v interface{}) error
}

// UploadedClipMetadata describes the most recently persisted clip. Written
// only by the upload worker, read by the video lane and the batcher;
// last-writer-wins via atomic pointer replacement, stale reads of one batch
// interval are acceptable.
type UploadedClipMetadata struct {
	StorageKey   string
	Bucket       string
	ThumbnailKey string
	StartTime    time.Time
	EndTime      time.Time
}
