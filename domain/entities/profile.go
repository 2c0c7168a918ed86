package entities

// UserProfile is the stored taste profile sent to the oracle verbatim.
// Field names mirror the persisted JSON payload.
type UserProfile struct {
	Identity struct {
		PrimaryMood []string `json:"primary_mood"`
		CoreGenres  []string `json:"core_genres"`
		EnergyFloor float64  `json:"energy_floor"`
	} `json:"identity"`
	TasteProfile struct {
		FavoriteGenres  []string `json:"favorite_genres"`
		ExcludedGenres  []string `json:"excluded_genres"`
		DiscoveryMode   float64  `json:"discovery_mode"`
		ExplicitContent bool     `json:"explicit_content"`
	} `json:"taste_profile"`
	VibeMatrix struct {
		TargetValence          float64 `json:"target_valence"`
		TargetEnergy           float64 `json:"target_energy"`
		TargetTempoBPM         float64 `json:"target_tempo_bpm"`
		TargetAcousticness     float64 `json:"target_acousticness"`
		TargetInstrumentalness float64 `json:"target_instrumentalness"`
	} `json:"vibe_matrix"`
}
