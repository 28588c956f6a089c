package main

import (
	"context"
	"log"

	"ai-livestream-be/internal/bootstrap"
	"ai-livestream-be/internal/config"
	"ai-livestream-be/internal/server"
	"ai-livestream-be/internal/tracer"
	"ai-livestream-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	reportCollaborators(cfg)

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := database.Migrate(gormDB); err != nil {
		log.Panicf("Database migration failed: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}

// reportCollaborators logs which external collaborators are configured.
// Missing keys degrade features instead of blocking startup, so making the
// degradation visible at boot is the only warning an operator gets.
func reportCollaborators(cfg *config.Config) {
	report := func(name, key string) {
		if key == "" {
			log.Printf("[WARN] %s not configured, feature disabled", name)
			return
		}
		log.Printf("[INFO] %s configured (key %s)", name, maskKey(key))
	}
	report("Deepgram transcription", cfg.Keys.Deepgram)
	report("Moondream captioning", cfg.Keys.Moondream)
	report("Mem0 long-term memory", cfg.Keys.Mem0)

	if cfg.Storage.Bucket == "" {
		log.Printf("[WARN] S3 bucket not configured, clip persistence disabled")
	} else {
		log.Printf("[INFO] Clip storage bucket: %s (%s)", cfg.Storage.Bucket, cfg.Storage.Region)
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
