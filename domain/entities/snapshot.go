package entities

import "time"

// TimeOfDayPeriod labels the local hour for the oracle prompt.
func TimeOfDayPeriod(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	default:
		return "Night"
	}
}

// Coordinates is a sensed location fix. AccuracyMeters is nil when the
// provider did not report accuracy.
type Coordinates struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracyMeters"`
}

// TimeSignal is the time-of-day slice of a snapshot.
type TimeSignal struct {
	Period    string `json:"period"`
	LocalTime string `json:"localTime"`
}

// LocationSignal is the location slice of a snapshot. Coordinates is nil
// while the location sensor is inactive.
type LocationSignal struct {
	Display     string       `json:"display"`
	Coordinates *Coordinates `json:"coordinates"`
}

// WeatherSignal is the weather slice of a snapshot.
type WeatherSignal struct {
	Summary     string      `json:"summary"`
	Temperature TempReading `json:"temperature"`
	Display     string      `json:"display"`
}

// TempReading holds a temperature value with its unit; both nil/empty when
// unknown.
type TempReading struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

// AmbienceSignal is the audio slice of a snapshot.
type AmbienceSignal struct {
	NoiseLevel string `json:"noiseLevel"`
	TempoBPM   *int   `json:"tempoBpm"`
	Descriptor string `json:"descriptor"`
}

// VisualSignal is the video slice of a snapshot.
type VisualSignal struct {
	Lighting         string `json:"lighting"`
	ColorTone        string `json:"colorTone"`
	ColorTemperature string `json:"colorTemperature"`
	SceneMood        string `json:"sceneMood"`
}

// PastTrack names a track already queued, used for novelty constraints.
type PastTrack struct {
	Name string `json:"name"`
}

// SignalSnapshot is the immutable aggregate of all contextual signals
// handed to the recommendation oracle. It is created fresh for each
// recommendation cycle and never mutated afterwards.
type SignalSnapshot struct {
	Context struct {
		Time     TimeSignal     `json:"time"`
		Location LocationSignal `json:"location"`
		Weather  WeatherSignal  `json:"weather"`
	} `json:"context"`
	Environment struct {
		Ambience AmbienceSignal `json:"ambience"`
		Visuals  VisualSignal   `json:"visuals"`
	} `json:"environment"`
	Playlist struct {
		PastTracks []PastTrack `json:"pastTracks"`
	} `json:"playlist"`
}
