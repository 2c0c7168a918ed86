package audio

import (
	"testing"
	"time"
)

// feedPulseTrain drives the estimator with a 20 Hz sample stream carrying
// a loud pulse every period, starting at start, for total duration.
func feedPulseTrain(e *TempoEstimator, start time.Time, period, total time.Duration) time.Time {
	cadence := 50 * time.Millisecond
	var now time.Time
	for elapsed := time.Duration(0); elapsed <= total; elapsed += cadence {
		rms := 0.01
		if elapsed%period == 0 {
			rms = 0.9
		}
		now = start.Add(elapsed)
		e.Process(rms, now)
	}
	return now
}

func TestTempoConvergesOnPeriodicPulse(t *testing.T) {
	cases := []struct {
		period  time.Duration
		wantBPM int
	}{
		{500 * time.Millisecond, 120},
		{400 * time.Millisecond, 150},
		{1000 * time.Millisecond, 60},
		{2000 * time.Millisecond, 30},
	}

	for _, tc := range cases {
		est := NewTempoEstimator(TempoConfig{})
		start := time.Unix(1700000000, 0)
		feedPulseTrain(est, start, tc.period, 7*tc.period)

		bpm := est.BPM()
		if bpm == nil {
			t.Errorf("period %v: expected an estimate, got none", tc.period)
			continue
		}
		if *bpm != tc.wantBPM {
			t.Errorf("period %v: expected %d BPM, got %d", tc.period, tc.wantBPM, *bpm)
		}
	}
}

func TestTempoBecomesAbsentWhenRoomGoesIdle(t *testing.T) {
	est := NewTempoEstimator(TempoConfig{})
	start := time.Unix(1700000000, 0)
	last := feedPulseTrain(est, start, 500*time.Millisecond, 3*time.Second)

	if est.BPM() == nil {
		t.Fatal("Expected an estimate before the room goes idle")
	}

	// Silence past twice the maximum inter-peak interval.
	cadence := 50 * time.Millisecond
	for elapsed := cadence; elapsed <= 4500*time.Millisecond; elapsed += cadence {
		est.Process(0.01, last.Add(elapsed))
	}

	if bpm := est.BPM(); bpm != nil {
		t.Errorf("Expected no estimate after idle period, got %d", *bpm)
	}
}

func TestRegisterPeakSpacingRules(t *testing.T) {
	est := NewTempoEstimator(TempoConfig{})
	start := time.Unix(1700000000, 0)

	est.registerPeak(start)
	if len(est.peaks) != 1 {
		t.Fatalf("Expected 1 peak, got %d", len(est.peaks))
	}

	// Below the minimum spacing: a double trigger, ignored entirely.
	est.registerPeak(start.Add(100 * time.Millisecond))
	if len(est.peaks) != 1 {
		t.Errorf("Double trigger should be ignored, got %d peaks", len(est.peaks))
	}
	if !est.lastPeakAt.Equal(start) {
		t.Error("Ignored trigger should not move the last peak time")
	}

	// Within bounds: appended.
	est.registerPeak(start.Add(500 * time.Millisecond))
	if len(est.peaks) != 2 {
		t.Errorf("Expected 2 peaks, got %d", len(est.peaks))
	}

	// Beyond the maximum: tempo change, history resets to this peak.
	reset := start.Add(3500 * time.Millisecond)
	est.registerPeak(reset)
	if len(est.peaks) != 1 {
		t.Errorf("Expected history reset to 1 peak, got %d", len(est.peaks))
	}
	if !est.peaks[0].Equal(reset) {
		t.Error("Reset history should hold the current peak")
	}
}

func TestPeakHistoryIsBounded(t *testing.T) {
	est := NewTempoEstimator(TempoConfig{})
	start := time.Unix(1700000000, 0)

	for i := 0; i < 20; i++ {
		est.registerPeak(start.Add(time.Duration(i) * 500 * time.Millisecond))
	}

	if len(est.peaks) != est.cfg.HistorySize {
		t.Errorf("Expected history capped at %d, got %d", est.cfg.HistorySize, len(est.peaks))
	}
	// Entries stay monotonically increasing.
	for i := 1; i < len(est.peaks); i++ {
		if !est.peaks[i].After(est.peaks[i-1]) {
			t.Fatal("Peak history must be monotonically increasing")
		}
	}
}

func TestTempoResetClearsEstimate(t *testing.T) {
	est := NewTempoEstimator(TempoConfig{})
	start := time.Unix(1700000000, 0)
	feedPulseTrain(est, start, 500*time.Millisecond, 3*time.Second)

	if est.BPM() == nil {
		t.Fatal("Expected an estimate before reset")
	}

	est.Reset()
	if est.BPM() != nil {
		t.Error("Expected no estimate after reset")
	}
	if len(est.peaks) != 0 || len(est.window) != 0 {
		t.Error("Reset should clear peak history and window")
	}
}
