package llm

import (
	"strings"
	"testing"

	"github.com/spotmusic/server/domain/entities"
)

func TestParseTrackQueryFromFencedResponse(t *testing.T) {
	text := "Here is my pick:\n```json\n{\n  \"song_title\": \"Sparkle\",\n  \"artist\": \"Tatsuro Yamashita\",\n  \"query\": \"Tatsuro Yamashita - Sparkle\",\n  \"maxResults\": 1,\n  \"rationale\": \"City pop for a sunny morning.\"\n}\n```\nEnjoy!"

	got := ParseTrackQuery(text)
	if got.SongTitle != "Sparkle" || got.Artist != "Tatsuro Yamashita" {
		t.Errorf("Unexpected parse: %+v", got)
	}
	if got.SearchQuery() != "Tatsuro Yamashita - Sparkle" {
		t.Errorf("SearchQuery = %q", got.SearchQuery())
	}
	if got.Rationale != "City pop for a sunny morning." {
		t.Errorf("Rationale = %q", got.Rationale)
	}
}

func TestParseTrackQueryFallsBackToRawQuery(t *testing.T) {
	got := ParseTrackQuery(`{"query": "Altin Gün - Goca Dünya", "maxResults": 1}`)
	if got.SongTitle != "" || got.Artist != "" {
		t.Errorf("Expected empty structured pair, got %+v", got)
	}
	if got.SearchQuery() != "Altin Gün - Goca Dünya" {
		t.Errorf("SearchQuery = %q", got.SearchQuery())
	}
}

func TestParseTrackQueryWithoutJSONIsEmpty(t *testing.T) {
	got := ParseTrackQuery("I could not decide on a track this time.")
	if got != (ParseTrackQuery("")) {
		t.Errorf("Expected empty query, got %+v", got)
	}
	if got.SearchQuery() != "" {
		t.Errorf("Expected empty search query, got %q", got.SearchQuery())
	}
}

func TestParseTrackQueryWithMalformedJSONIsEmpty(t *testing.T) {
	got := ParseTrackQuery(`{"song_title": "Sparkle", `)
	if got.SearchQuery() != "" {
		t.Errorf("Malformed JSON should parse empty, got %+v", got)
	}
}

func TestBuildPromptEmbedsSnapshotAndProfile(t *testing.T) {
	var snapshot entities.SignalSnapshot
	snapshot.Context.Time.Period = "Evening"
	snapshot.Environment.Visuals.SceneMood = "Cozy"
	snapshot.Playlist.PastTracks = []entities.PastTrack{{Name: "Bill Withers - Lovely Day"}}

	prompt, err := BuildPrompt(snapshot, nil)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	for _, want := range []string{
		`"period": "Evening"`,
		`"sceneMood": "Cozy"`,
		"Bill Withers - Lovely Day",
		"User profile JSON:\nnull",
		"NEVER REPEAT TRACKS",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestSupportsWebSearchAllowlist(t *testing.T) {
	if supportsWebSearch(DefaultModel) {
		t.Errorf("%s should not use the search tool", DefaultModel)
	}
	if !supportsWebSearch("gemini-2.5-flash") {
		t.Error("gemini-2.5-flash should use the search tool")
	}
}
