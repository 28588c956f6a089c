package implementation

import (
	"context"
	"errors"
	"time"

	"ai-livestream-be/internal/entity"
	"ai-livestream-be/internal/mapper"
	"ai-livestream-be/internal/model"
	"ai-livestream-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ClipRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ClipMapper
}

func NewClipRepository(db *gorm.DB) contract.ClipRepository {
	return &ClipRepositoryImpl{
		db:     db,
		mapper: mapper.NewClipMapper(),
	}
}

func (r *ClipRepositoryImpl) Create(ctx context.Context, clip *entity.VideoClip) error {
	m := r.mapper.ToModel(clip)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*clip = *r.mapper.ToEntity(m)
	return nil
}

func (r *ClipRepositoryImpl) FindAtTime(ctx context.Context, sessionId string, target time.Time) (*entity.VideoClip, error) {
	var m model.VideoClip
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND start_time <= ? AND end_time >= ?", sessionId, target, target).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ClipRepositoryImpl) FindInRange(ctx context.Context, sessionId string, start, end time.Time) ([]*entity.VideoClip, error) {
	var models []*model.VideoClip
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND start_time <= ? AND end_time >= ?", sessionId, end, start).
		Order("start_time").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ClipRepositoryImpl) FindBySession(ctx context.Context, sessionId string) ([]*entity.VideoClip, error) {
	var models []*model.VideoClip
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("start_time").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
