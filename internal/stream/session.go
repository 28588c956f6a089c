package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/encoder"
	"ai-livestream-be/internal/pkg/logger"
	"ai-livestream-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Conn is the full-duplex client connection a session runs over.
type Conn interface {
	WireReader
	ClientSender
	Close() error
}

// SessionDeps carries the shared collaborators a session is built from.
// Transcriber and captioner come from factories because both hold per-session
// state (an upstream socket, a frame counter).
type SessionDeps struct {
	Log       logger.ILogger
	Repo      contract.ClipRepository
	Store     BlobStore
	Bucket    string
	Memory    MemoryStore
	Publisher EventPublisher

	NewTranscriber func() Transcriber
	NewCaptioner   func() Captioner

	ClipDuration    time.Duration
	ClipFPS         int
	BatchInterval   time.Duration
	MemoryUserScope string
}

// Session orchestrates one websocket stream: the router fans inbound
// messages out to the audio and video lanes, the upload worker drains encoded
// clips, and the batcher coalesces annotations. Teardown is drain-first: lane
// queues close before anything is cancelled, so buffered work always lands.
type Session struct {
	Id   string
	deps SessionDeps
}

func NewSession(deps SessionDeps) *Session {
	return &Session{
		Id:   fmt.Sprintf("vc_%s_%d", uuid.NewString()[:8], time.Now().Unix()),
		deps: deps,
	}
}

func (s *Session) Run(ctx context.Context, conn Conn) error {
	log := s.deps.Log
	started := time.Now()
	log.Info("Session", "Stream session started", map[string]interface{}{"session_id": s.Id})

	if err := conn.SendJSON(dto.StatusMessage{Status: "connected", SessionId: s.Id}); err != nil {
		log.Warn("Session", "Failed to send connect ack", map[string]interface{}{
			"session_id": s.Id, "error": err.Error(),
		})
	}

	// Publish blocks until the batcher acks, so annotations from one lane
	// reach the batch in publish order and nothing is in flight when the bus
	// closes.
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	bus := NewAnnotationBus(pubsub)

	batcher := NewAnnotationBatcher(s.Id, s.deps.Memory, s.deps.MemoryUserScope, s.deps.BatchInterval, pubsub, log)
	busCtx := context.WithoutCancel(ctx)
	batcherDone := make(chan struct{})
	if err := batcher.Subscribe(busCtx); err != nil {
		log.Error("Session", "Annotation bus subscribe failed", map[string]interface{}{
			"session_id": s.Id, "error": err.Error(),
		})
		bus = nil
		close(batcherDone)
	} else {
		go func() {
			defer close(batcherDone)
			// The batcher outlives cancellation; it stops when the bus closes.
			if err := batcher.Run(busCtx); err != nil {
				log.Error("Session", "Annotation batcher failed", map[string]interface{}{
					"session_id": s.Id, "error": err.Error(),
				})
			}
		}()
	}

	audioQ := NewQueue[dto.StreamMessage]()
	videoQ := NewQueue[dto.StreamMessage]()
	uploadQ := NewQueue[*encoder.ClipResult]()
	lastUploaded := &atomic.Pointer[UploadedClipMetadata]{}

	transcriber := s.deps.NewTranscriber()
	if err := transcriber.Start(ctx); err != nil {
		// The session degrades to video-only instead of refusing the client.
		log.Warn("Session", "Transcription unavailable", map[string]interface{}{
			"session_id": s.Id, "error": err.Error(),
		})
	}

	enc := encoder.NewClipEncoder(s.deps.ClipDuration, s.deps.ClipFPS, log)

	router := NewRouter(s.Id, conn, audioQ, videoQ, log)
	audio := NewAudioProcessor(s.Id, audioQ, transcriber, conn, bus, log)
	video := NewVideoProcessor(s.Id, videoQ, enc, s.deps.NewCaptioner(), conn, bus, uploadQ, lastUploaded, log)
	upload := NewUploadWorker(s.Id, uploadQ, s.deps.Store, s.deps.Bucket, s.deps.Repo, s.deps.Publisher, lastUploaded, log)

	g, gctx := errgroup.WithContext(ctx)

	// Unblocks the router read when the session context ends first.
	go func() {
		<-gctx.Done()
		_ = conn.Close()
	}()

	g.Go(router.Run)
	g.Go(func() error { return audio.Run(gctx) })
	g.Go(func() error { return video.Run(gctx) })
	g.Go(func() error { return upload.Run(gctx) })

	err := g.Wait()

	// Everything that can publish annotations has stopped; close the bus so
	// the batcher drains, then capture the tail.
	if cerr := pubsub.Close(); cerr != nil {
		log.Warn("Session", "Annotation bus close failed", map[string]interface{}{
			"session_id": s.Id, "error": cerr.Error(),
		})
	}
	<-batcherDone
	batcher.Flush(busCtx)

	_ = transcriber.Close()

	log.Info("Session", "Stream session finished", map[string]interface{}{
		"session_id": s.Id,
		"duration":   time.Since(started).String(),
		"clips":      enc.ClipIndex(),
	})
	return err
}
