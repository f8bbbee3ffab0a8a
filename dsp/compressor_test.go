package dsp

import (
	"math"
	"testing"
)

func TestCompressor_StaticGainReductionConvergence(t *testing.T) {
	// A signal held 20 dB above a -20 dB threshold with ratio 4 must
	// converge to the theoretical static reduction of
	// (20) * (1 - 1/4) = 15 dB, within 1 dB.
	unit, err := NewUnit(EffectCompressor, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{
		"threshold":  -20.0,
		"ratio":      4.0,
		"attack":     0.005,
		"release":    0.050,
		"makeupGain": 0.0,
	})

	// Full-scale DC-offset level: |x| = 1.0 is 0 dBFS = threshold + 20 dB.
	// Run for one second, far beyond 5 attack time constants (25 ms).
	const blockSize = 256
	block := make([]float32, blockSize)
	var lastOut float64
	for b := 0; b < int(testSampleRate)/blockSize; b++ {
		for i := range block {
			block[i] = 1.0
		}
		unit.Process(block)
		lastOut = float64(block[blockSize-1])
	}

	gotReductionDB := -20.0 * math.Log10(lastOut)
	if math.Abs(gotReductionDB-15.0) > 1.0 {
		t.Errorf("steady-state reduction = %.2f dB, want 15 dB +/- 1 dB", gotReductionDB)
	}
}

func TestCompressor_BelowThresholdIsTransparent(t *testing.T) {
	unit, err := NewUnit(EffectCompressor, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{
		"threshold":  -10.0,
		"ratio":      8.0,
		"makeupGain": 0.0,
	})

	// -40 dBFS, well under the threshold: gain must stay at unity.
	const amplitude = 0.01
	block := make([]float32, 2048)
	for i := range block {
		block[i] = amplitude
	}
	unit.Process(block)

	out := float64(block[len(block)-1])
	if math.Abs(out-amplitude) > amplitude*0.01 {
		t.Errorf("below-threshold output = %f, want ~%f", out, amplitude)
	}
}

func TestCompressor_MakeupGainApplied(t *testing.T) {
	unit, err := NewUnit(EffectCompressor, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{
		"threshold":  0.0, // nothing exceeds it
		"ratio":      4.0,
		"makeupGain": 6.0,
	})

	block := make([]float32, 512)
	for i := range block {
		block[i] = 0.1
	}
	unit.Process(block)

	want := 0.1 * math.Pow(10.0, 6.0/20.0)
	got := float64(block[len(block)-1])
	if math.Abs(got-want) > want*0.02 {
		t.Errorf("makeup gain output = %f, want ~%f", got, want)
	}
}

func TestCompressor_GainReductionMeter(t *testing.T) {
	unit, err := NewUnit(EffectCompressor, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{
		"threshold":  -20.0,
		"ratio":      4.0,
		"attack":     0.005,
		"release":    0.050,
		"makeupGain": 0.0,
	})

	if got := unit.GainReduction(); got != 0 {
		t.Errorf("meter before signal = %f dB, want 0", got)
	}

	// Same steady 0 dBFS drive as the convergence test: the meter must
	// settle at the static reduction.
	block := make([]float32, 256)
	for b := 0; b < int(testSampleRate)/256; b++ {
		for i := range block {
			block[i] = 1.0
		}
		unit.Process(block)
	}
	if got := unit.GainReduction(); math.Abs(got-15.0) > 1.0 {
		t.Errorf("meter = %.2f dB, want 15 dB +/- 1 dB", got)
	}

	eq, err := NewUnit(EffectEqualizer, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	if got := eq.GainReduction(); got != 0 {
		t.Errorf("non-compressor meter = %f dB, want 0", got)
	}
}

func TestEnvelopeFollower_TracksAttackAndRelease(t *testing.T) {
	follower := NewEnvelopeFollower(0.001, 0.050, testSampleRate)

	// Drive with a steady level; envelope must climb toward it.
	var env float64
	for i := 0; i < 480; i++ { // 10 ms
		env = follower.Follow(0.5)
	}
	if env < 0.45 {
		t.Errorf("envelope after attack = %f, want >= 0.45", env)
	}

	// Silence: envelope must fall, but slower than the attack.
	for i := 0; i < 480; i++ {
		env = follower.Follow(0.0)
	}
	if env > 0.45 || env < 0.01 {
		t.Errorf("envelope after 10ms release = %f, want a partial decay", env)
	}
}
