// Package youtube adapts the YouTube Data API v3 search endpoint to the
// video search port.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/repositories"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// Result count bounds enforced regardless of what callers ask for.
const (
	minResults = 1
	maxResults = 5
)

// Client calls the YouTube search API.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a search client from the environment. A missing
// YOUTUBE_API_KEY is not fatal here; searches fail until one is set.
func NewClient(logger *zap.Logger) *Client {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		logger.Warn("YOUTUBE_API_KEY is not set, video search is disabled")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// Search runs a video-only snippet search. The result count is clamped to
// [1, 5] and entries without a videoId are dropped.
func (c *Client) Search(ctx context.Context, query string, count int) ([]repositories.Video, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("video search is not configured")
	}
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if count < minResults {
		count = minResults
	}
	if count > maxResults {
		count = maxResults
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(count))
	params.Set("key", c.apiKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("youtube search request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		c.logger.Warn("YouTube search failed",
			zap.Int("status", response.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("youtube search failed with status %d", response.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(response.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode youtube response: %w", err)
	}

	videos := make([]repositories.Video, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, repositories.Video{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}

	c.logger.Debug("YouTube search complete",
		zap.String("query", query),
		zap.Int("results", len(videos)))
	return videos, nil
}
