package entities

// Settings is the non-secret client configuration persisted between
// sessions.
type Settings struct {
	Model              string `json:"llmModel"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// APIKeys holds client-supplied credentials. Persisted only when the
// client explicitly asks to be remembered.
type APIKeys struct {
	GeminiAPIKey  string `json:"geminiApiKey"`
	YouTubeAPIKey string `json:"youtubeApiKey"`
}
