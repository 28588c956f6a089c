package dto

import "time"

type ClipResponse struct {
	Id           uint      `json:"id"`
	SessionId    string    `json:"session_id"`
	ClipIndex    int       `json:"clip_index"`
	StorageKey   string    `json:"storage_key"`
	Bucket       string    `json:"bucket"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	FrameCount   int       `json:"frame_count,omitempty"`
	PlaybackURL  string    `json:"playback_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

type MemorySearchQuery struct {
	Query string `query:"query" validate:"required,min=1"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type MemoryResponse struct {
	Id       string                 `json:"id"`
	Memory   string                 `json:"memory"`
	Score    float64                `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
