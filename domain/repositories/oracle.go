package repositories

import (
	"context"

	"github.com/spotmusic/server/domain/entities"
)

// TrackQuery is the oracle's parsed answer: one specific track to search
// for. SongTitle and Artist are preferred; Query is the raw fallback when
// the response carried no structured pair.
type TrackQuery struct {
	SongTitle  string
	Artist     string
	Query      string
	MaxResults int
	Rationale  string
}

// SearchQuery resolves the query string to hand to the search
// collaborator, preferring the structured artist/title pair.
func (t TrackQuery) SearchQuery() string {
	if t.SongTitle != "" && t.Artist != "" {
		return t.Artist + " - " + t.SongTitle
	}
	return t.Query
}

// RecommendationOracle abstracts the model that turns a signal snapshot
// and taste profile into one track query.
type RecommendationOracle interface {
	Recommend(ctx context.Context, snapshot entities.SignalSnapshot, profile *entities.UserProfile, model string) (TrackQuery, error)
}
