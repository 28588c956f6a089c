package mapper

import (
	"encoding/json"

	"ai-livestream-be/internal/entity"
	"ai-livestream-be/internal/model"

	"gorm.io/datatypes"
)

type ClipMapper struct{}

func NewClipMapper() *ClipMapper {
	return &ClipMapper{}
}

// clipExtra holds per-clip attributes that do not warrant their own column.
type clipExtra struct {
	FrameCount int `json:"frame_count"`
}

func (m *ClipMapper) ToModel(e *entity.VideoClip) *model.VideoClip {
	extra, _ := json.Marshal(clipExtra{FrameCount: e.FrameCount})
	return &model.VideoClip{
		Id:                  e.Id,
		SessionId:           e.SessionId,
		ClipIndex:           e.ClipIndex,
		StorageKey:          e.StorageKey,
		StorageBucket:       e.StorageBucket,
		ThumbnailStorageKey: e.ThumbnailStorageKey,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		Extra:               datatypes.JSON(extra),
		CreatedAt:           e.CreatedAt,
	}
}

func (m *ClipMapper) ToEntity(mod *model.VideoClip) *entity.VideoClip {
	var extra clipExtra
	if len(mod.Extra) > 0 {
		_ = json.Unmarshal(mod.Extra, &extra)
	}
	return &entity.VideoClip{
		Id:                  mod.Id,
		SessionId:           mod.SessionId,
		ClipIndex:           mod.ClipIndex,
		StorageKey:          mod.StorageKey,
		StorageBucket:       mod.StorageBucket,
		ThumbnailStorageKey: mod.ThumbnailStorageKey,
		StartTime:           mod.StartTime,
		EndTime:             mod.EndTime,
		FrameCount:          extra.FrameCount,
		CreatedAt:           mod.CreatedAt,
	}
}

func (m *ClipMapper) ToEntities(models []*model.VideoClip) []*entity.VideoClip {
	entities := make([]*entity.VideoClip, 0, len(models))
	for _, mod := range models {
		entities = append(entities, m.ToEntity(mod))
	}
	return entities
}
