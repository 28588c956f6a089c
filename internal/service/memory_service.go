package service

import (
	"context"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/pkg/memory"
)

const defaultSearchLimit = 10

// MemorySearcher is the long-term memory read surface.
type MemorySearcher interface {
	Search(ctx context.Context, query, userId string, limit int) ([]memory.Record, error)
}

type IMemoryService interface {
	Search(ctx context.Context, query string, limit int) ([]dto.MemoryResponse, error)
}

type memoryService struct {
	searcher  MemorySearcher
	userScope string
}

func NewMemoryService(searcher MemorySearcher, userScope string) IMemoryService {
	return &memoryService{searcher: searcher, userScope: userScope}
}

func (s *memoryService) Search(ctx context.Context, query string, limit int) ([]dto.MemoryResponse, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	records, err := s.searcher.Search(ctx, query, s.userScope, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MemoryResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, dto.MemoryResponse{
			Id:       r.Id,
			Memory:   r.Memory,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	return responses, nil
}
