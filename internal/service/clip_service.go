package service

import (
	"context"
	"time"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/entity"
	"ai-livestream-be/internal/pkg/logger"
	"ai-livestream-be/internal/repository/contract"
)

const playbackURLTTL = 15 * time.Minute

// URLSigner issues time-limited playback URLs for stored clip artifacts.
type URLSigner interface {
	Configured() bool
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type IClipService interface {
	GetSessionClips(ctx context.Context, sessionId string) ([]dto.ClipResponse, error)
	GetClipAtTime(ctx context.Context, sessionId string, at time.Time) (*dto.ClipResponse, error)
	GetClipsInRange(ctx context.Context, sessionId string, start, end time.Time) ([]dto.ClipResponse, error)
}

type clipService struct {
	repo   contract.ClipRepository
	signer URLSigner
	log    logger.ILogger
}

func NewClipService(repo contract.ClipRepository, signer URLSigner, log logger.ILogger) IClipService {
	return &clipService{repo: repo, signer: signer, log: log}
}

func (s *clipService) GetSessionClips(ctx context.Context, sessionId string) ([]dto.ClipResponse, error) {
	clips, err := s.repo.FindBySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, clips), nil
}

func (s *clipService) GetClipAtTime(ctx context.Context, sessionId string, at time.Time) (*dto.ClipResponse, error) {
	clip, err := s.repo.FindAtTime(ctx, sessionId, at)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, nil
	}
	res := s.toResponse(ctx, clip)
	return &res, nil
}

func (s *clipService) GetClipsInRange(ctx context.Context, sessionId string, start, end time.Time) ([]dto.ClipResponse, error) {
	clips, err := s.repo.FindInRange(ctx, sessionId, start, end)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, clips), nil
}

func (s *clipService) toResponses(ctx context.Context, clips []*entity.VideoClip) []dto.ClipResponse {
	responses := make([]dto.ClipResponse, 0, len(clips))
	for _, clip := range clips {
		responses = append(responses, s.toResponse(ctx, clip))
	}
	return responses
}

func (s *clipService) toResponse(ctx context.Context, clip *entity.VideoClip) dto.ClipResponse {
	res := dto.ClipResponse{
		Id:         clip.Id,
		SessionId:  clip.SessionId,
		ClipIndex:  clip.ClipIndex,
		StorageKey: clip.StorageKey,
		Bucket:     clip.StorageBucket,
		StartTime:  clip.StartTime,
		EndTime:    clip.EndTime,
		FrameCount: clip.FrameCount,
	}

	// Presigning is best effort; the record is still useful without a link.
	if s.signer != nil && s.signer.Configured() {
		if url, err := s.signer.PresignGet(ctx, clip.StorageKey, playbackURLTTL); err == nil {
			res.PlaybackURL = url
		} else {
			s.log.Warn("ClipService", "Failed to presign clip URL", map[string]interface{}{
				"key": clip.StorageKey, "error": err.Error(),
			})
		}
		if clip.ThumbnailStorageKey != "" {
			if url, err := s.signer.PresignGet(ctx, clip.ThumbnailStorageKey, playbackURLTTL); err == nil {
				res.ThumbnailURL = url
			}
		}
	}
	return res
}
