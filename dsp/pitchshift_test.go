package dsp

import (
	"math"
	"testing"
)

// dominantPeriod estimates the period of a settled signal by counting
// rising zero crossings.
func dominantPeriod(samples []float32) float64 {
	var crossings []int
	for i := 1; i < len(samples); i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			crossings = append(crossings, i)
		}
	}
	if len(crossings) < 3 {
		return 0
	}
	span := crossings[len(crossings)-1] - crossings[0]
	return float64(span) / float64(len(crossings)-1)
}

func TestPitchShifter_UnityRatioPreservesPitch(t *testing.T) {
	unit, err := NewUnit(EffectPitchShift, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{"pitchRatio": 1.0})

	out := processSine(t, unit, 250.0, 16384)
	period := dominantPeriod(out[8192:])
	wantPeriod := testSampleRate / 250.0
	if math.Abs(period-wantPeriod)/wantPeriod > 0.05 {
		t.Errorf("unity ratio period = %.1f samples, want ~%.1f", period, wantPeriod)
	}
}

func TestPitchShifter_OctaveUpHalvesPeriod(t *testing.T) {
	unit, err := NewUnit(EffectPitchShift, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{"pitchRatio": 2.0})

	out := processSine(t, unit, 250.0, 16384)
	period := dominantPeriod(out[8192:])
	wantPeriod := testSampleRate / 500.0
	if period == 0 {
		t.Fatal("pitch shifted output produced no zero crossings")
	}
	if math.Abs(period-wantPeriod)/wantPeriod > 0.10 {
		t.Errorf("octave-up period = %.1f samples, want ~%.1f", period, wantPeriod)
	}
}

func TestVocoder_OutputFollowsModulatorEnvelope(t *testing.T) {
	unit, err := NewUnit(EffectVocoder, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}

	// Voiced input drives the carrier bands; silence must let them decay.
	voiced := processSine(t, unit, 440.0, 8192)
	var voicedEnergy float64
	for _, s := range voiced[4096:] {
		voicedEnergy += float64(s) * float64(s)
	}

	silent := make([]float32, 8192)
	unit.Process(silent)
	var silentEnergy float64
	for _, s := range silent[4096:] {
		silentEnergy += float64(s) * float64(s)
	}

	if voicedEnergy <= 0 {
		t.Fatal("vocoder produced no output for voiced input")
	}
	if silentEnergy >= voicedEnergy*0.01 {
		t.Errorf("vocoder output did not decay on silence: %f vs %f", silentEnergy, voicedEnergy)
	}
}

// processSine feeds a sine of the given frequency through the unit and
// returns the processed samples.
func processSine(t *testing.T, unit *Unit, freq float64, n int) []float32 {
	t.Helper()
	block := make([]float32, n)
	for i := range block {
		block[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	unit.Process(block)
	return block
}

func TestDistortion_SaturatesHotSignal(t *testing.T) {
	unit, err := NewUnit(EffectDistortion, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{"drive": 10.0, "tone": 12000.0, "level": 1.0})

	out := processSine(t, unit, 200.0, 4096)

	var peak float64
	for _, s := range out {
		if abs := math.Abs(float64(s)); abs > peak {
			peak = abs
		}
	}
	if peak > 1.01 {
		t.Errorf("distortion peak = %f, want <= 1.0", peak)
	}

	// Heavy drive flattens the wave toward a square: the settled region
	// should spend most samples near the rails.
	var nearRail int
	settled := out[2048:]
	for _, s := range settled {
		if math.Abs(float64(s)) > 0.7 {
			nearRail++
		}
	}
	if float64(nearRail)/float64(len(settled)) < 0.5 {
		t.Errorf("drive did not saturate waveform: %d/%d samples near rails", nearRail, len(settled))
	}
}
