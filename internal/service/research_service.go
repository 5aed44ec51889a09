package service

import (
	"context"
	"fmt"

	"labswarm/internal/model"
	"labswarm/pkg/interfaces"
)

// ResearchService read access to filed research records
type ResearchService struct {
	store interfaces.ResearchStore
}

// NewResearchService creates a new research service
func NewResearchService(store interfaces.ResearchStore) *ResearchService {
	return &ResearchService{store: store}
}

// List returns research records newest first
func (s *ResearchService) List(ctx context.Context) ([]*model.ResearchRecord, error) {
	records, err := s.store.ListResearch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list research data: %w", err)
	}
	return records, nil
}
