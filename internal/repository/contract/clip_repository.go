package contract

import (
	"context"
	"time"

	"ai-livestream-be/internal/entity"
)

type ClipRepository interface {
	Create(ctx context.Context, clip *entity.VideoClip) error
	// FindAtTime returns the clip whose window contains target, or nil.
	FindAtTime(ctx context.Context, sessionId string, target time.Time) (*entity.VideoClip, error)
	// FindInRange returns clips overlapping [start, end], ordered by start time.
	FindInRange(ctx context.Context, sessionId string, start, end time.Time) ([]*entity.VideoClip, error)
	// FindBySession returns every clip of a session, ordered by start time.
	FindBySession(ctx context.Context, sessionId string) ([]*entity.VideoClip, error)
}
