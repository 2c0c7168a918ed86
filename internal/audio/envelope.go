package audio

import (
	"math"
	"time"

	"github.com/spotmusic/server/domain/entities"
)

const (
	// Smoothing factor for the loudness envelope.
	defaultSmoothing = 0.2
	// Minimum gap between published readings unless the bucket changed.
	defaultEmitInterval = 500 * time.Millisecond
)

// Observation is one processed audio frame: the raw RMS, the smoothed
// envelope, and the noise bucket derived from the envelope.
type Observation struct {
	RMS         float64
	SmoothedRMS float64
	NoiseLevel  entities.NoiseLevel
}

// EnvelopeTracker converts raw audio frames into a smoothed loudness
// value and a noise classification. State is an explicit owned struct so
// tests can drive it with synthetic sample sequences.
type EnvelopeTracker struct {
	alpha        float64
	emitInterval time.Duration

	envelope  float64
	seeded    bool
	lastEmit  time.Time
	lastLevel entities.NoiseLevel
}

// NewEnvelopeTracker creates a tracker with the default smoothing factor
// and emit throttle.
func NewEnvelopeTracker() *EnvelopeTracker {
	return &EnvelopeTracker{
		alpha:        defaultSmoothing,
		emitInterval: defaultEmitInterval,
		lastLevel:    entities.NoiseUnknown,
	}
}

// RMS computes the root-mean-square amplitude of a frame of samples in
// [-1, 1]. An empty frame yields 0.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range frame {
		sumSquares += sample * sample
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}

// Process consumes one frame captured at now. The returned observation is
// always the current state; emit is true only when the emit interval has
// elapsed or the classification bucket changed, so downstream consumers
// are not flooded with no-op updates.
func (t *EnvelopeTracker) Process(frame []float64, now time.Time) (obs Observation, emit bool) {
	rms := RMS(frame)

	if !t.seeded {
		t.envelope = rms
		t.seeded = true
	} else {
		t.envelope += t.alpha * (rms - t.envelope)
	}

	level := entities.ClassifyNoise(t.envelope)
	obs = Observation{RMS: rms, SmoothedRMS: t.envelope, NoiseLevel: level}

	if now.Sub(t.lastEmit) >= t.emitInterval || level != t.lastLevel {
		t.lastEmit = now
		t.lastLevel = level
		return obs, true
	}
	return obs, false
}

// Envelope returns the smoothed loudness value, false before the first
// frame or after a reset.
func (t *EnvelopeTracker) Envelope() (float64, bool) {
	return t.envelope, t.seeded
}

// Level returns the last emitted noise bucket.
func (t *EnvelopeTracker) Level() entities.NoiseLevel {
	return t.lastLevel
}

// Reset nulls all derived state so downstream consumers see Unknown, not
// stale data. Safe to call repeatedly or before the first frame.
func (t *EnvelopeTracker) Reset() {
	t.envelope = 0
	t.seeded = false
	t.lastEmit = time.Time{}
	t.lastLevel = entities.NoiseUnknown
}
