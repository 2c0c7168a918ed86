package entities

// NoiseLevel buckets the smoothed loudness envelope. It is always
// recomputed from the envelope, never stored independently.
type NoiseLevel string

const (
	NoiseQuiet    NoiseLevel = "Quiet"
	NoiseModerate NoiseLevel = "Moderate"
	NoiseLoud     NoiseLevel = "Loud"
	NoiseUnknown  NoiseLevel = "Unknown"
)

// ClassifyNoise maps a smoothed RMS value in [0, 1] to a noise bucket.
func ClassifyNoise(rms float64) NoiseLevel {
	if rms < 0.03 {
		return NoiseQuiet
	}
	if rms < 0.08 {
		return NoiseModerate
	}
	return NoiseLoud
}

// Descriptor is the human-readable phrase sent to the oracle for a noise
// bucket.
func (n NoiseLevel) Descriptor() string {
	switch n {
	case NoiseQuiet:
		return "Quiet room"
	case NoiseModerate:
		return "Moderate ambience"
	case NoiseLoud:
		return "Noisy environment"
	default:
		return "Unknown ambience"
	}
}

// AmbienceReading is one published audio observation: the latest raw and
// smoothed loudness, its bucket, and the current tempo estimate. TempoBPM
// is nil when there is insufficient or too-old peak evidence.
type AmbienceReading struct {
	RMS         float64    `json:"rms"`
	SmoothedRMS float64    `json:"smoothedRms"`
	NoiseLevel  NoiseLevel `json:"noiseLevel"`
	Descriptor  string     `json:"descriptor"`
	TempoBPM    *int       `json:"tempoBpm"`
}
