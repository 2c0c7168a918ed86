package llm

import (
	"context"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

// MockOracle is a placeholder oracle for development without API keys.
// It always recommends the same specific track.
type MockOracle struct{}

// NewMockOracle creates a new mock oracle.
func NewMockOracle() repositories.RecommendationOracle {
	return &MockOracle{}
}

// Recommend implements repositories.RecommendationOracle.
func (m *MockOracle) Recommend(ctx context.Context, snapshot entities.SignalSnapshot, profile *entities.UserProfile, model string) (repositories.TrackQuery, error) {
	return repositories.TrackQuery{
		SongTitle:  "Midnight City",
		Artist:     "M83",
		Query:      "M83 - Midnight City",
		MaxResults: 1,
		Rationale:  "Static development pick; no model was consulted.",
	}, nil
}
