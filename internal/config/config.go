package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Stream   StreamConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type DatabaseConfig struct {
	Connection string
}

type StorageConfig struct {
	Bucket     string
	Region     string
	PresignTTL time.Duration
}

// StreamConfig tunes the per-connection ingestion pipeline.
type StreamConfig struct {
	ClipDuration    time.Duration // wall-clock window per encoded clip
	ClipFPS         int           // nominal playback frame rate
	CaptionEveryN   int           // vision collaborator processes 1 in N frames
	BatchInterval   time.Duration // annotation batch flush period
	AudioSampleRate int           // inbound PCM sample rate (linear16)
	MemoryUserScope string        // user id under which memories are stored
}

type APIKeys struct {
	Deepgram  string
	Moondream string
	Mem0      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Storage: StorageConfig{
			Bucket:     getEnv("S3_BUCKET_NAME", ""),
			Region:     getEnv("AWS_REGION", "us-east-1"),
			PresignTTL: time.Duration(getEnvAsInt("S3_PRESIGN_TTL_SECONDS", 3600)) * time.Second,
		},
		Stream: StreamConfig{
			ClipDuration:    time.Duration(getEnvAsInt("CLIP_DURATION_SECONDS", 10)) * time.Second,
			ClipFPS:         getEnvAsInt("CLIP_FPS", 24),
			CaptionEveryN:   getEnvAsInt("CAPTION_EVERY_N_FRAMES", 10),
			BatchInterval:   time.Duration(getEnvAsInt("MEMORY_BATCH_INTERVAL_SECONDS", 30)) * time.Second,
			AudioSampleRate: getEnvAsInt("AUDIO_SAMPLE_RATE", 24000),
			MemoryUserScope: getEnv("MEMORY_USER_SCOPE", "jarvis"),
		},
		Keys: APIKeys{
			Deepgram:  getEnv("DEEPGRAM_API_KEY", ""),
			Moondream: getEnv("MOONDREAM_API_KEY", ""),
			Mem0:      getEnv("MEM0_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
