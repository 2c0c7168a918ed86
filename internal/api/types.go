package api

import "time"

// SessionResponse carries a freshly issued listener session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// ConfigResponse exposes which integrations are configured without ever
// echoing the key material itself.
type ConfigResponse struct {
	Model         string `json:"model"`
	HasGeminiKey  bool   `json:"hasGeminiKey"`
	HasYouTubeKey bool   `json:"hasYouTubeKey"`
}

// SelectRequest targets one queue index.
type SelectRequest struct {
	Index int `json:"index"`
}

// TransportRequest flips the play/pause intent.
type TransportRequest struct {
	Playing bool `json:"playing"`
}

// RecommendRequest asks for an explicit recommendation cycle.
type RecommendRequest struct {
	Reason string `json:"reason,omitempty"`
}

// SettingsRequest updates stored client settings. Keys are persisted
// only when RememberKeys is set.
type SettingsRequest struct {
	Model              string `json:"llmModel"`
	OnboardingComplete bool   `json:"onboardingComplete"`
	RememberKeys       bool   `json:"rememberKeys"`
	GeminiAPIKey       string `json:"geminiApiKey,omitempty"`
	YouTubeAPIKey      string `json:"youtubeApiKey,omitempty"`
}

// SettingsResponse returns stored settings plus any remembered keys.
type SettingsResponse struct {
	Model              string `json:"llmModel"`
	OnboardingComplete bool   `json:"onboardingComplete"`
	GeminiAPIKey       string `json:"geminiApiKey,omitempty"`
	YouTubeAPIKey      string `json:"youtubeApiKey,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
