package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

// ErrRecommendationInFlight is returned when a cycle is requested while an
// earlier one is still running. Only one cycle runs at a time; later
// requests are rejected, not queued.
var ErrRecommendationInFlight = errors.New("recommendation cycle already in flight")

// Queries that name collections rather than a single track are rejected
// and replaced by a fallback query.
var bannedQueryTerms = []string{
	"playlist",
	"mix",
	"radio",
	"album",
	"discography",
	"top hits",
	"best of",
	"live set",
	"compilation",
}

const fallbackTrack = "M83 - Midnight City"

// Recommendation is the outcome of one cycle: queue-ready items plus the
// provenance of the query that produced them.
type Recommendation struct {
	Items     []entities.QueueItem
	Query     string
	Rationale string
	Fallback  bool
}

// RecommendationService runs the oracle-then-search cycle that refills
// the playback queue.
type RecommendationService struct {
	oracle repositories.RecommendationOracle
	search repositories.VideoSearch
	logger *zap.Logger

	inFlight atomic.Bool
	now      func() time.Time
}

// NewRecommendationService wires the oracle and search collaborators.
func NewRecommendationService(oracle repositories.RecommendationOracle, search repositories.VideoSearch, logger *zap.Logger) *RecommendationService {
	return &RecommendationService{
		oracle: oracle,
		search: search,
		logger: logger,
		now:    time.Now,
	}
}

// Recommend runs one full cycle: consult the oracle, vet its answer,
// search for the track, and return queue-ready items. The snapshot is
// taken by the caller at trigger time and not refreshed mid-cycle.
func (s *RecommendationService) Recommend(ctx context.Context, snapshot entities.SignalSnapshot, profile *entities.UserProfile, model string, reason string) (Recommendation, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Recommendation{}, ErrRecommendationInFlight
	}
	defer s.inFlight.Store(false)

	s.logger.Info("starting recommendation cycle", zap.String("reason", reason), zap.String("model", model))

	trackQuery, err := s.oracle.Recommend(ctx, snapshot, profile, model)
	if err != nil {
		return Recommendation{}, entities.NewDomainError(entities.ErrOracleFailure, "recommendation oracle failed", err)
	}

	query := strings.TrimSpace(trackQuery.SearchQuery())
	rationale := strings.TrimSpace(trackQuery.Rationale)
	fallback := false
	if query == "" || !IsSpecificSongQuery(query) {
		s.logger.Warn("oracle answer not a specific track; using fallback query", zap.String("rejected", query))
		query = FallbackQuery(snapshot)
		rationale = "Fallback query generated without usable oracle output."
		fallback = true
	}

	maxResults := trackQuery.MaxResults
	if maxResults < 1 {
		maxResults = 1
	}

	videos, err := s.search.Search(ctx, query, maxResults)
	if err != nil {
		return Recommendation{}, entities.NewDomainError(entities.ErrSearchFailure, "video search failed", err)
	}
	if len(videos) == 0 {
		return Recommendation{}, entities.NewDomainError(entities.ErrSearchFailure,
			fmt.Sprintf("no results for query %q", query), nil)
	}

	source := "llm"
	if fallback {
		source = "fallback"
	}
	items := make([]entities.QueueItem, 0, len(videos))
	for _, video := range videos {
		items = append(items, entities.QueueItem{
			VideoID:      video.VideoID,
			Title:        video.Title,
			ChannelTitle: video.ChannelTitle,
			AddedAt:      s.now(),
			Source:       source,
			Query:        query,
			Rationale:    rationale,
		})
	}

	s.logger.Info("recommendation cycle complete",
		zap.String("query", query),
		zap.Int("results", len(items)),
		zap.Bool("fallback", fallback))

	return Recommendation{Items: items, Query: query, Rationale: rationale, Fallback: fallback}, nil
}

// IsSpecificSongQuery reports whether query names one concrete track:
// no collection terms, an artist separator, and at least three words.
func IsSpecificSongQuery(query string) bool {
	lowered := strings.ToLower(query)
	for _, term := range bannedQueryTerms {
		if strings.Contains(lowered, term) {
			return false
		}
	}
	hasSeparator := strings.Contains(query, " - ") || strings.Contains(lowered, " by ")
	return hasSeparator && len(strings.Fields(query)) >= 3
}

// FallbackQuery builds a deterministic query from whichever snapshot
// descriptors carry information, anchored to a known track so the search
// still returns something playable.
func FallbackQuery(snapshot entities.SignalSnapshot) string {
	hints := make([]string, 0, 3)
	for _, value := range []string{
		snapshot.Environment.Visuals.SceneMood,
		snapshot.Environment.Ambience.Descriptor,
		snapshot.Context.Weather.Summary,
	} {
		if isUsefulSignal(value) {
			hints = append(hints, value)
		}
	}
	if len(hints) == 0 {
		return fallbackTrack
	}
	return strings.Join(hints, " ") + ` - "Midnight City" by M83`
}

func isUsefulSignal(value string) bool {
	switch value {
	case "", "Unknown", "Off", "Unavailable", "Permission denied", "Unknown ambience":
		return false
	}
	return true
}
