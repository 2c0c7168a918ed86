// Package llm adapts the Gemini API to the recommendation oracle port.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

// DefaultModel is used when the caller does not pin a model.
const DefaultModel = "gemma-3-27b-it"

const requestTimeout = 30 * time.Second

// Models that accept the Google Search grounding tool. Everything else is
// called without tools.
var modelsSupportingWebSearch = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
}

// GeminiOracle implements the RecommendationOracle interface using
// Google's Gemini API.
type GeminiOracle struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGeminiOracle creates a Gemini-backed oracle from the environment.
func NewGeminiOracle(logger *zap.Logger) (*GeminiOracle, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{
		client: client,
		logger: logger,
	}, nil
}

// Recommend asks the model for one track matching the snapshot and
// profile. Transient API failures are retried with backoff before giving
// up; a response without parseable JSON yields an empty TrackQuery and no
// error, which the caller turns into a fallback query.
func (g *GeminiOracle) Recommend(ctx context.Context, snapshot entities.SignalSnapshot, profile *entities.UserProfile, model string) (repositories.TrackQuery, error) {
	if model == "" {
		model = DefaultModel
	}

	prompt, err := BuildPrompt(snapshot, profile)
	if err != nil {
		return repositories.TrackQuery{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	var config *genai.GenerateContentConfig
	if supportsWebSearch(model) {
		config = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var response *genai.GenerateContentResponse
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.String("model", model),
			zap.Error(err))
		if attempt < 2 {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
				return repositories.TrackQuery{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return repositories.TrackQuery{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(response)
	if text == "" {
		g.logger.Warn("Empty oracle response", zap.String("model", model))
		return repositories.TrackQuery{}, nil
	}

	query := ParseTrackQuery(text)
	g.logger.Info("Oracle answered",
		zap.String("model", model),
		zap.String("query", query.SearchQuery()))
	return query, nil
}

func supportsWebSearch(model string) bool {
	for _, candidate := range modelsSupportingWebSearch {
		if candidate == model {
			return true
		}
	}
	return false
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}
