package model

import (
	"time"

	"gorm.io/datatypes"
)

type VideoClip struct {
	Id                  uint           `gorm:"primaryKey;autoIncrement"`
	SessionId           string         `gorm:"type:varchar(100);not null;index:ix_video_clips_session_time,priority:1"`
	ClipIndex           int            `gorm:"not null"`
	StorageKey          string         `gorm:"type:varchar(500);not null"`
	StorageBucket       string         `gorm:"type:varchar(100);not null"`
	ThumbnailStorageKey string         `gorm:"type:varchar(500)"`
	StartTime           time.Time      `gorm:"not null;index:ix_video_clips_session_time,priority:2"`
	EndTime             time.Time      `gorm:"not null;index:ix_video_clips_session_time,priority:3"`
	Extra               datatypes.JSON
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
}

func (VideoClip) TableName() string {
	return "video_clips"
}
