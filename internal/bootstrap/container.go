package bootstrap

import (
	"log"

	"ai-livestream-be/internal/config"
	"ai-livestream-be/internal/controller"
	"ai-livestream-be/internal/pkg/logger"
	"ai-livestream-be/internal/repository/implementation"
	"ai-livestream-be/internal/service"
	"ai-livestream-be/internal/stream"
	"ai-livestream-be/pkg/memory"
	pktNats "ai-livestream-be/pkg/nats"
	"ai-livestream-be/pkg/storage"
	"ai-livestream-be/pkg/stt"
	"ai-livestream-be/pkg/vision"

	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ClipController   controller.IClipController
	MemoryController controller.IMemoryController

	// WebSocket ingestion
	StreamHandler *stream.StreamHandler
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Infrastructure
	clipRepo := implementation.NewClipRepository(db)
	s3Store := storage.NewS3Store(cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PresignTTL, sysLogger)
	memoryClient := memory.NewClient(cfg.Keys.Mem0, sysLogger)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Stream sessions get a dedicated log file so per-frame noise stays out
	// of the request log.
	streamLogger := logger.NewIsolatedLogger("logs/stream.log")

	deps := stream.SessionDeps{
		Log:       streamLogger,
		Repo:      clipRepo,
		Store:     s3Store,
		Bucket:    cfg.Storage.Bucket,
		Memory:    memoryClient,
		Publisher: publisherOrNil(natsPub),

		NewTranscriber: func() stream.Transcriber {
			return stt.NewDeepgram(cfg.Keys.Deepgram, cfg.Stream.AudioSampleRate, streamLogger)
		},
		NewCaptioner: func() stream.Captioner {
			return vision.NewMoondream(cfg.Keys.Moondream, cfg.Stream.CaptionEveryN, streamLogger)
		},

		ClipDuration:    cfg.Stream.ClipDuration,
		ClipFPS:         cfg.Stream.ClipFPS,
		BatchInterval:   cfg.Stream.BatchInterval,
		MemoryUserScope: cfg.Stream.MemoryUserScope,
	}

	// Services
	clipService := service.NewClipService(clipRepo, s3Store, sysLogger)
	memoryService := service.NewMemoryService(memoryClient, cfg.Stream.MemoryUserScope)

	return &Container{
		ClipController:   controller.NewClipController(clipService),
		MemoryController: controller.NewMemoryController(memoryService),
		StreamHandler:    stream.NewStreamHandler(deps),
	}
}

// publisherOrNil keeps a failed NATS connection out of the session wiring; a
// typed nil would defeat the publisher == nil checks downstream.
func publisherOrNil(p *pktNats.Publisher) stream.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
