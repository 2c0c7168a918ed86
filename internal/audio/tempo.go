package audio

import (
	"math"
	"time"
)

// TempoConfig holds the estimator's tuning constants. The defaults were
// chosen empirically; they are configurable rather than hard invariants.
type TempoConfig struct {
	// Smoothing factor for the fast peak-picking envelope.
	EnvelopeSmoothing float64
	// Rolling window length for the adaptive threshold statistics.
	EnvelopeWindow int
	// Absolute floor for the peak acceptance threshold.
	ThresholdFloor float64
	// Multiplier applied to the window's standard deviation.
	ThresholdStdDevs float64
	// Bounds on a valid inter-peak interval.
	MinPeakInterval time.Duration
	MaxPeakInterval time.Duration
	// Peak history capacity.
	HistorySize int
	// Minimum accepted peaks before an estimate is computed.
	MinPeaks int
	// Minimum gap between estimate recomputes.
	UpdateInterval time.Duration
}

// DefaultTempoConfig returns the estimator defaults.
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		EnvelopeSmoothing: 0.5,
		EnvelopeWindow:    120,
		ThresholdFloor:    0.02,
		ThresholdStdDevs:  0.6,
		MinPeakInterval:   300 * time.Millisecond,
		MaxPeakInterval:   2000 * time.Millisecond,
		HistorySize:       8,
		MinPeaks:          4,
		UpdateInterval:    600 * time.Millisecond,
	}
}

// TempoEstimator detects periodic loudness peaks in the raw RMS stream
// and estimates tempo in beats per minute. It keeps a second, faster
// envelope purely for peak-picking; the adaptive threshold tolerates
// varying ambient loudness, and interval bounds reject both false double
// triggers and spurious long gaps.
type TempoEstimator struct {
	cfg TempoConfig

	envelope float64
	seeded   bool
	prev     float64
	hasPrev  bool
	rising   bool

	window []float64

	peaks          []time.Time
	lastPeakAt     time.Time
	hasPeak        bool
	lastEstimateAt time.Time

	bpm    int
	hasBPM bool
}

// NewTempoEstimator creates an estimator with cfg. Zero-value fields fall
// back to the defaults.
func NewTempoEstimator(cfg TempoConfig) *TempoEstimator {
	defaults := DefaultTempoConfig()
	if cfg.EnvelopeSmoothing == 0 {
		cfg.EnvelopeSmoothing = defaults.EnvelopeSmoothing
	}
	if cfg.EnvelopeWindow == 0 {
		cfg.EnvelopeWindow = defaults.EnvelopeWindow
	}
	if cfg.ThresholdFloor == 0 {
		cfg.ThresholdFloor = defaults.ThresholdFloor
	}
	if cfg.ThresholdStdDevs == 0 {
		cfg.ThresholdStdDevs = defaults.ThresholdStdDevs
	}
	if cfg.MinPeakInterval == 0 {
		cfg.MinPeakInterval = defaults.MinPeakInterval
	}
	if cfg.MaxPeakInterval == 0 {
		cfg.MaxPeakInterval = defaults.MaxPeakInterval
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if cfg.MinPeaks == 0 {
		cfg.MinPeaks = defaults.MinPeaks
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = defaults.UpdateInterval
	}
	return &TempoEstimator{cfg: cfg}
}

// Process consumes one raw RMS sample captured at now. The raw value is
// used rather than the smoothed envelope to preserve transient detail.
func (e *TempoEstimator) Process(rms float64, now time.Time) {
	if !e.seeded {
		e.envelope = rms
		e.seeded = true
	} else {
		e.envelope += e.cfg.EnvelopeSmoothing * (rms - e.envelope)
	}

	e.window = append(e.window, e.envelope)
	if len(e.window) > e.cfg.EnvelopeWindow {
		e.window = e.window[1:]
	}

	threshold := e.threshold()

	if e.hasPrev {
		isRising := e.envelope > e.prev
		if e.rising && !isRising && e.prev >= threshold {
			e.registerPeak(now)
		}
		e.rising = isRising
	}
	e.prev = e.envelope
	e.hasPrev = true

	e.recompute(now)

	// Idle room: force the estimate absent once peaks stop arriving.
	if e.hasPeak && now.Sub(e.lastPeakAt) > 2*e.cfg.MaxPeakInterval {
		e.hasBPM = false
	}
}

// threshold is the adaptive peak acceptance level over the rolling
// window: max(floor, mean + k*stddev).
func (e *TempoEstimator) threshold() float64 {
	if len(e.window) == 0 {
		return e.cfg.ThresholdFloor
	}
	var mean float64
	for _, v := range e.window {
		mean += v
	}
	mean /= float64(len(e.window))

	var variance float64
	for _, v := range e.window {
		delta := v - mean
		variance += delta * delta
	}
	variance /= float64(len(e.window))

	return math.Max(e.cfg.ThresholdFloor, mean+e.cfg.ThresholdStdDevs*math.Sqrt(variance))
}

// registerPeak applies the inter-peak spacing rules. An interval below
// the minimum is a double trigger and is ignored; an interval above the
// maximum is evidence of a tempo change and resets the history to the
// current peak alone.
func (e *TempoEstimator) registerPeak(now time.Time) {
	if e.hasPeak && now.Sub(e.lastPeakAt) < e.cfg.MinPeakInterval {
		return
	}
	if !e.hasPeak || now.Sub(e.lastPeakAt) <= e.cfg.MaxPeakInterval {
		e.peaks = append(e.peaks, now)
		if len(e.peaks) > e.cfg.HistorySize {
			e.peaks = e.peaks[1:]
		}
	} else {
		e.peaks = []time.Time{now}
	}
	e.lastPeakAt = now
	e.hasPeak = true
}

// recompute updates the BPM estimate from the mean of valid inter-peak
// intervals, no more often than the update interval.
func (e *TempoEstimator) recompute(now time.Time) {
	if len(e.peaks) < e.cfg.MinPeaks || now.Sub(e.lastEstimateAt) < e.cfg.UpdateInterval {
		return
	}

	var total time.Duration
	var count int
	for i := 1; i < len(e.peaks); i++ {
		delta := e.peaks[i].Sub(e.peaks[i-1])
		if delta >= e.cfg.MinPeakInterval && delta <= e.cfg.MaxPeakInterval {
			total += delta
			count++
		}
	}

	if count > 0 {
		meanMs := float64(total.Milliseconds()) / float64(count)
		e.bpm = int(math.Round(60000 / meanMs))
		e.hasBPM = true
	} else {
		e.hasBPM = false
	}
	e.lastEstimateAt = now
}

// BPM returns the current estimate, or nil when there is insufficient or
// too-old peak evidence.
func (e *TempoEstimator) BPM() *int {
	if !e.hasBPM {
		return nil
	}
	bpm := e.bpm
	return &bpm
}

// Reset discards all envelope, window, and peak state. Safe to call at
// any time, including before the first sample.
func (e *TempoEstimator) Reset() {
	e.envelope = 0
	e.seeded = false
	e.prev = 0
	e.hasPrev = false
	e.rising = false
	e.window = nil
	e.peaks = nil
	e.lastPeakAt = time.Time{}
	e.hasPeak = false
	e.lastEstimateAt = time.Time{}
	e.hasBPM = false
}
