package llm

import (
	"encoding/json"
	"strings"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

const promptTemplate = `
You are a specialized Music Curator. Your job is to return the ONE song the room needs, not just what it's directly asking for.

# Instructions
1. Identify the user's location, time of year, and fuse all of the input parameters into a profile
2. Analyze pastTracks and favorite_genres. Use these to determine the "sonic DNA." If a genre is unconventional (e.g., slang or memes), cross-reference it with the instrumentation/vibe of the pastTracks.
3. What musical levers can you use? Incorporate every input parameter.For example: Tempo (Match or counter), Texture (Morning vs Night, Warm vs Cold), Culture (Korean Cafe vs Cha Chaan Teng vs Nobu)
4. Use the Google Search tool to a) find a song only if you need help b) verify the song and artist exist and are real
5. Occasionally suggest a "Left-field" track that shares a DNA thread with the user's history but spans a different decade or geography. For the left-field, if the user likes Rock, don't immediately pick Queen or Journey. Look for the 'B-side' energy that fits the specific room texture.

# Requirements:
1. Always return a specific track (never a playlist, radio mix, artist-only query, album-only query, or generic genre search).
2. MUST FOLLOW - NEVER REPEAT TRACKS. DO NOT REPEAT ANY TRACKS FROM pastTracks

Examples:
1. The "Momentum" Play (Evening Shift)
Context: User likes 70s Soul; Location: Brooklyn Wine Bar; Time: 8:00 PM; Energy: Rising.
History: Last 3 tracks were mid-tempo Bill Withers and Al Green.
Logic: The room is filling up; we need momentum without breaking the "Retro" DNA. Shift from "Sit-down Soul" to "Dancefloor Disco."
Selection: The Emotions - Best of My Love
Rationale: "Moving from mellow 70s soul into high-energy disco to match the rising evening energy while staying within the user's retro preference."

2. The "Culture & Texture" Reset (Morning Heat)
Context: Location: High-end Japanese Cafe; Weather: 90°F (Hot/Humid); Energy: High (Morning Rush).
History: High-energy J-Pop and Top 40.
Logic: The room is chaotic and hot. Use the Texture lever to "cool" the room down with a reset. Apply the Culture lever by selecting "City Pop"—the DNA of Japanese summer.
Selection: Tatsuro Yamashita - Sparkle
Rationale: "The shop is frantic and hot; this track offers a 'Cool/Aqueous' texture and Japanese cultural relevance to stabilize the mood without losing the summer vibe."

3. The "Left-Field DNA" Bridge (Global Discovery)
Context: User profile shows a heavy preference for 90s UK Trip-Hop (Massive Attack, Portishead).
History: Steady "Dark" energy.
Logic: Use DNA threading to find a modern, global equivalent. The "Left-field" lever connects 90s Bristol vibes to modern Middle Eastern psych-rock.
Selection: Altin Gün - Goca Dünya
Rationale: "Sharing the 'fuzzy' synth textures and heavy basslines of the user's Trip-Hop history, but shifting the geography to Turkey for a sophisticated 'Left-field' discovery moment."

Context JSON:
%CONTEXT%

User profile JSON:
%PROFILE%

Return JSON with:
{
  "song_title": "string",
  "artist": "string",
  "query": "string (format: Artist - Song Title)",
  "maxResults": 1,
  "rationale": "short string"
}
`

// BuildPrompt renders the curator prompt with the snapshot and profile
// embedded as pretty-printed JSON.
func BuildPrompt(snapshot entities.SignalSnapshot, profile *entities.UserProfile) (string, error) {
	contextJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	profileJSON := []byte("null")
	if profile != nil {
		profileJSON, err = json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return "", err
		}
	}

	prompt := strings.Replace(promptTemplate, "%CONTEXT%", string(contextJSON), 1)
	prompt = strings.Replace(prompt, "%PROFILE%", string(profileJSON), 1)
	return prompt, nil
}

type oracleAnswer struct {
	SongTitle  string `json:"song_title"`
	Artist     string `json:"artist"`
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
	Rationale  string `json:"rationale"`
}

// ParseTrackQuery extracts the track answer from a model response. Models
// wrap the JSON in prose or code fences, so the first balanced {...} block
// is taken. Unparseable text yields an empty TrackQuery.
func ParseTrackQuery(text string) repositories.TrackQuery {
	block := extractJSONBlock(text)
	if block == "" {
		return repositories.TrackQuery{}
	}

	var answer oracleAnswer
	if err := json.Unmarshal([]byte(block), &answer); err != nil {
		return repositories.TrackQuery{}
	}

	return repositories.TrackQuery{
		SongTitle:  strings.TrimSpace(answer.SongTitle),
		Artist:     strings.TrimSpace(answer.Artist),
		Query:      strings.TrimSpace(answer.Query),
		MaxResults: answer.MaxResults,
		Rationale:  strings.TrimSpace(answer.Rationale),
	}
}

// extractJSONBlock returns the substring from the first '{' to the last
// '}' inclusive, or "" when no such block exists.
func extractJSONBlock(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
