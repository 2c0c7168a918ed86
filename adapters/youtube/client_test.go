package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Second},
		logger:     zap.NewNop(),
		apiKey:     "test-key",
		baseURL:    server.URL,
	}
}

func TestSearchParsesAndFiltersResults(t *testing.T) {
	var gotQuery, gotMax, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		gotType = r.URL.Query().Get("type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"id": {"videoId": "abc"}, "snippet": {"title": "M83 - Midnight City", "channelTitle": "M83"}},
				{"id": {}, "snippet": {"title": "channel result"}},
				{"id": {"videoId": "def"}, "snippet": {"title": "Other", "channelTitle": "Someone"}}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	videos, err := client.Search(context.Background(), "M83 - Midnight City", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotQuery != "M83 - Midnight City" || gotMax != "3" || gotType != "video" {
		t.Errorf("Unexpected request params: q=%q maxResults=%q type=%q", gotQuery, gotMax, gotType)
	}
	if len(videos) != 2 {
		t.Fatalf("Expected 2 videos after filtering, got %d", len(videos))
	}
	if videos[0].VideoID != "abc" || videos[0].ChannelTitle != "M83" {
		t.Errorf("Unexpected first video: %+v", videos[0])
	}
}

func TestSearchClampsMaxResults(t *testing.T) {
	var gotMax string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("maxResults")
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	if _, err := client.Search(context.Background(), "anything", 50); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotMax != "5" {
		t.Errorf("Expected clamp to 5, got %s", gotMax)
	}

	if _, err := client.Search(context.Background(), "anything", 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotMax != "1" {
		t.Errorf("Expected clamp to 1, got %s", gotMax)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := &Client{httpClient: http.DefaultClient, logger: zap.NewNop(), apiKey: "k", baseURL: "http://invalid"}
	if _, err := client.Search(context.Background(), "", 3); err == nil {
		t.Error("Empty query should be rejected before any request")
	}
}

func TestSearchFailsWithoutAPIKey(t *testing.T) {
	client := &Client{httpClient: http.DefaultClient, logger: zap.NewNop(), baseURL: "http://invalid"}
	if client.Configured() {
		t.Error("Client without a key should not report configured")
	}
	if _, err := client.Search(context.Background(), "anything", 3); err == nil {
		t.Error("Unconfigured client should refuse to search")
	}
}

func TestSearchSurfacesUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quotaExceeded"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server)
	if _, err := client.Search(context.Background(), "anything", 3); err == nil {
		t.Error("Non-200 upstream status should be an error")
	}
}
