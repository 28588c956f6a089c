package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const annotationTimeLayout = "2006-01-02 15:04:05"

// AnnotationBatcher accumulates transcript and caption annotations off the
// in-process bus and periodically coalesces each kind into one long-term
// memory record. Batching keeps memory writes off the hot ingestion path and
// turns dozens of fragments into a single searchable narrative entry.
type AnnotationBatcher struct {
	sessionId  string
	memory     MemoryStore
	userScope  string
	interval   time.Duration
	subscriber message.Subscriber
	log        logger.ILogger

	transcriptCh <-chan *message.Message
	captionCh    <-chan *message.Message

	mu          sync.Mutex
	transcripts []TranscriptAnnotation
	captions    []CaptionAnnotation
}

func NewAnnotationBatcher(sessionId string, mem MemoryStore, userScope string, interval time.Duration, subscriber message.Subscriber, log logger.ILogger) *AnnotationBatcher {
	return &AnnotationBatcher{
		sessionId:  sessionId,
		memory:     mem,
		userScope:  userScope,
		interval:   interval,
		subscriber: subscriber,
		log:        log,
	}
}

// Subscribe attaches to both annotation topics. It must complete before any
// lane publishes; the bus only delivers to subscriptions that already exist.
func (b *AnnotationBatcher) Subscribe(ctx context.Context) error {
	transcriptCh, err := b.subscriber.Subscribe(ctx, TopicTranscripts)
	if err != nil {
		return err
	}
	captionCh, err := b.subscriber.Subscribe(ctx, TopicCaptions)
	if err != nil {
		return err
	}
	b.transcriptCh = transcriptCh
	b.captionCh = captionCh
	return nil
}

// Run consumes the bus until both subscriptions close, flushing on a fixed
// interval. Publishers block until their message is acked, so the accept loop
// never runs a memory write itself; the ticker flush happens on its own
// goroutine to keep acks flowing. The owner performs one final Flush after
// Run returns to capture the tail of the session.
func (b *AnnotationBatcher) Run(ctx context.Context) error {
	stopTicker := make(chan struct{})
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				b.Flush(context.WithoutCancel(ctx))
			}
		}
	}()

	transcriptCh, captionCh := b.transcriptCh, b.captionCh
	for transcriptCh != nil || captionCh != nil {
		select {
		case msg, ok := <-transcriptCh:
			if !ok {
				transcriptCh = nil
				continue
			}
			b.acceptTranscript(msg)
		case msg, ok := <-captionCh:
			if !ok {
				captionCh = nil
				continue
			}
			b.acceptCaption(msg)
		}
	}

	close(stopTicker)
	<-tickerDone
	return nil
}

func (b *AnnotationBatcher) acceptTranscript(msg *message.Message) {
	defer msg.Ack()
	var a TranscriptAnnotation
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		b.log.Warn("Batcher", "Dropping malformed transcript annotation", map[string]interface{}{
			"session_id": b.sessionId, "error": err.Error(),
		})
		return
	}
	b.mu.Lock()
	b.transcripts = append(b.transcripts, a)
	b.mu.Unlock()
}

func (b *AnnotationBatcher) acceptCaption(msg *message.Message) {
	defer msg.Ack()
	var a CaptionAnnotation
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		b.log.Warn("Batcher", "Dropping malformed caption annotation", map[string]interface{}{
			"session_id": b.sessionId, "error": err.Error(),
		})
		return
	}
	b.mu.Lock()
	b.captions = append(b.captions, a)
	b.mu.Unlock()
}

// Pending reports buffered annotation counts, for tests and introspection.
func (b *AnnotationBatcher) Pending() (transcripts, captions int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transcripts), len(b.captions)
}

// Flush coalesces everything buffered so far into at most two memory records.
// Idempotent when nothing is buffered; safe to call concurrently with Run.
func (b *AnnotationBatcher) Flush(ctx context.Context) {
	b.mu.Lock()
	transcripts := b.transcripts
	captions := b.captions
	b.transcripts = nil
	b.captions = nil
	b.mu.Unlock()

	if len(transcripts) == 0 && len(captions) == 0 {
		return
	}

	if len(transcripts) > 0 {
		b.flushTranscripts(ctx, transcripts)
	}
	if len(captions) > 0 {
		b.flushCaptions(ctx, captions)
	}
}

func (b *AnnotationBatcher) flushTranscripts(ctx context.Context, batch []TranscriptAnnotation) {
	texts := make([]string, 0, len(batch))
	speakers := map[string]struct{}{}
	for _, t := range batch {
		texts = append(texts, t.Text)
		if t.Speaker != "" {
			speakers[t.Speaker] = struct{}{}
		}
	}

	speaker := "multiple"
	if len(speakers) == 1 {
		for s := range speakers {
			speaker = s
		}
	} else if len(speakers) == 0 {
		speaker = "unknown"
	}

	ts := batch[0].Timestamp.UTC().Format(annotationTimeLayout)
	content := "At " + ts + ", " + speaker + " said: " + strings.Join(texts, " ")

	err := b.memory.Add(ctx, content, b.userScope, map[string]interface{}{
		"type":       "transcript",
		"session_id": b.sessionId,
		"speaker":    speaker,
		"timestamp":  ts,
		"segments":   len(batch),
	})
	if err != nil {
		b.log.Error("Batcher", "Transcript memory write failed", map[string]interface{}{
			"session_id": b.sessionId, "segments": len(batch), "error": err.Error(),
		})
		return
	}
	b.log.Info("Batcher", "Transcript batch stored", map[string]interface{}{
		"session_id": b.sessionId, "segments": len(batch),
	})
}

func (b *AnnotationBatcher) flushCaptions(ctx context.Context, batch []CaptionAnnotation) {
	descriptions := make([]string, 0, len(batch))
	for _, c := range batch {
		descriptions = append(descriptions, c.Description)
	}

	first := batch[0]
	last := batch[len(batch)-1]
	ts := first.Timestamp.UTC().Format(annotationTimeLayout)
	content := "At " + ts + ", I observed: " + strings.Join(descriptions, " | ")

	metadata := map[string]interface{}{
		"type":         "visual_observation",
		"session_id":   b.sessionId,
		"timestamp":    ts,
		"frame_number": last.FrameNumber,
		"captions":     len(batch),
	}
	if last.ClipKey != "" {
		metadata["clip_key"] = last.ClipKey
		metadata["clip_bucket"] = last.ClipBucket
		metadata["clip_start"] = last.ClipStart.UTC().Format(annotationTimeLayout)
		metadata["clip_end"] = last.ClipEnd.UTC().Format(annotationTimeLayout)
	}

	if err := b.memory.Add(ctx, content, b.userScope, metadata); err != nil {
		b.log.Error("Batcher", "Caption memory write failed", map[string]interface{}{
			"session_id": b.sessionId, "captions": len(batch), "error": err.Error(),
		})
		return
	}
	b.log.Info("Batcher", "Caption batch stored", map[string]interface{}{
		"session_id": b.sessionId, "captions": len(batch),
	})
}
