package entity

import "time"

// VideoClip is the persisted metadata for one encoded clip of a streaming
// session. The media itself lives in blob storage under StorageKey.
type VideoClip struct {
	Id                  uint
	SessionId           string
	ClipIndex           int
	StorageKey          string
	StorageBucket       string
	ThumbnailStorageKey string
	StartTime           time.Time
	EndTime             time.Time
	FrameCount          int
	CreatedAt           time.Time
}
