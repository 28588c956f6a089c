package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ai-livestream-be/internal/encoder"
	"ai-livestream-be/internal/entity"
	"ai-livestream-be/internal/pkg/logger"
	"ai-livestream-be/internal/repository/contract"
	"ai-livestream-be/pkg/events"
	"ai-livestream-be/pkg/storage"
)

// UploadWorker drains the clip queue and persists each clip to object storage
// plus the relational index. It is fully decoupled from frame ingestion: a
// slow upload never stalls the video lane. A failed clip is logged and
// skipped, never retried, so one bad item cannot dam the stream behind it.
type UploadWorker struct {
	sessionId    string
	queue        *Queue[*encoder.ClipResult]
	store        BlobStore
	bucket       string
	repo         contract.ClipRepository
	publisher    EventPublisher
	lastUploaded *atomic.Pointer[UploadedClipMetadata]
	log          logger.ILogger
}

func NewUploadWorker(sessionId string, queue *Queue[*encoder.ClipResult], store BlobStore, bucket string, repo contract.ClipRepository, publisher EventPublisher, lastUploaded *atomic.Pointer[UploadedClipMetadata], log logger.ILogger) *UploadWorker {
	return &UploadWorker{
		sessionId:    sessionId,
		queue:        queue,
		store:        store,
		bucket:       bucket,
		repo:         repo,
		publisher:    publisher,
		lastUploaded: lastUploaded,
		log:          log,
	}
}

// Run drains until the video lane closes the queue. Cancellation of ctx does
// not abort the drain; the final flush clip arrives after the session context
// is already done and still has to be persisted.
func (w *UploadWorker) Run(ctx context.Context) error {
	opCtx := context.WithoutCancel(ctx)

	configured := w.store.Configured()
	if !configured {
		w.log.Warn("Upload", "No storage bucket configured, clips will be dropped", map[string]interface{}{
			"session_id": w.sessionId,
		})
	}

	uploaded, dropped := 0, 0
	for {
		clip, ok := w.queue.Get(opCtx)
		if !ok {
			break
		}
		if !configured {
			dropped++
			continue
		}
		if err := w.persist(opCtx, clip); err != nil {
			dropped++
			w.log.Error("Upload", "Clip persistence failed, skipping", map[string]interface{}{
				"session_id": w.sessionId, "clip_index": clip.Index, "error": err.Error(),
			})
			continue
		}
		uploaded++
	}

	w.log.Info("Upload", "Upload worker finished", map[string]interface{}{
		"session_id": w.sessionId, "uploaded": uploaded, "dropped": dropped,
	})
	return nil
}

func (w *UploadWorker) persist(ctx context.Context, clip *encoder.ClipResult) error {
	clipKey := storage.ClipKey(w.sessionId, clip.Index)
	thumbKey := storage.ThumbnailKey(w.sessionId, clip.Index)

	meta := map[string]string{
		"session_id": w.sessionId,
		"clip_index": fmt.Sprintf("%d", clip.Index),
		"start_time": clip.StartTime.UTC().Format(time.RFC3339),
		"end_time":   clip.EndTime.UTC().Format(time.RFC3339),
	}
	if err := w.store.Put(ctx, clipKey, clip.Video, "video/x-msvideo", meta); err != nil {
		return err
	}

	storedThumb := ""
	if len(clip.Thumbnail) > 0 {
		if err := w.store.Put(ctx, thumbKey, clip.Thumbnail, "image/jpeg", nil); err != nil {
			// The clip itself is already safe; a lost thumbnail is cosmetic.
			w.log.Warn("Upload", "Thumbnail upload failed", map[string]interface{}{
				"session_id": w.sessionId, "clip_index": clip.Index, "error": err.Error(),
			})
		} else {
			storedThumb = thumbKey
		}
	}

	record := &entity.VideoClip{
		SessionId:           w.sessionId,
		ClipIndex:           clip.Index,
		StorageKey:          clipKey,
		StorageBucket:       w.bucket,
		ThumbnailStorageKey: storedThumb,
		StartTime:           clip.StartTime,
		EndTime:             clip.EndTime,
		FrameCount:          clip.FrameCount,
	}
	if err := w.repo.Create(ctx, record); err != nil {
		return err
	}

	w.lastUploaded.Store(&UploadedClipMetadata{
		StorageKey:   clipKey,
		Bucket:       w.bucket,
		ThumbnailKey: storedThumb,
		StartTime:    clip.StartTime,
		EndTime:      clip.EndTime,
	})

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, events.NewClipUploaded(w.sessionId, clipKey, clip.Index)); err != nil {
			w.log.Warn("Upload", "Failed to publish clip event", map[string]interface{}{
				"session_id": w.sessionId, "clip_index": clip.Index, "error": err.Error(),
			})
		}
	}

	w.log.Info("Upload", "Clip persisted", map[string]interface{}{
		"session_id": w.sessionId,
		"clip_index": clip.Index,
		"key":        clipKey,
		"frames":     clip.FrameCount,
		"bytes":      len(clip.Video),
	})
	return nil
}
