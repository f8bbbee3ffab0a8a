package dsp

import (
	"math"
	"testing"
)

func TestNewGain_Validation(t *testing.T) {
	tests := []struct {
		name    string
		gain    float64
		wantErr bool
	}{
		{name: "silence", gain: 0.0, wantErr: false},
		{name: "unity", gain: 1.0, wantErr: false},
		{name: "maximum", gain: 4.0, wantErr: false},
		{name: "negative", gain: -0.5, wantErr: true},
		{name: "too high", gain: 5.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGain(tt.gain)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGain(%f) error = %v, wantErr %v", tt.gain, err, tt.wantErr)
			}
		})
	}
}

func TestGain_ProcessScalesAndClips(t *testing.T) {
	g, err := NewGain(2.0)
	if err != nil {
		t.Fatalf("NewGain() error: %v", err)
	}

	block := []float32{0.1, -0.2, 0.8, -0.9}
	g.Process(block)

	want := []float32{0.2, -0.4, 1.0, -1.0}
	for i := range block {
		if math.Abs(float64(block[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, block[i], want[i])
		}
	}
}

func TestAutoGain_AmplifiesQuietSignal(t *testing.T) {
	agc := NewAutoGain()

	// A quiet steady tone should be pushed toward the target level.
	for i := 0; i < 100; i++ {
		block := make([]float32, 480)
		for j := range block {
			block[j] = float32(0.05 * math.Sin(2*math.Pi*440*float64(j)/testSampleRate))
		}
		agc.Process(block)
	}

	if agc.CurrentGain() <= 1.0 {
		t.Errorf("CurrentGain() = %f, want > 1.0 for quiet input", agc.CurrentGain())
	}
}

func TestAutoGain_SetTargetLevelValidation(t *testing.T) {
	agc := NewAutoGain()
	if err := agc.SetTargetLevel(0.5); err != nil {
		t.Errorf("SetTargetLevel(0.5) unexpected error: %v", err)
	}
	if err := agc.SetTargetLevel(1.5); err == nil {
		t.Error("SetTargetLevel(1.5) expected error, got nil")
	}
}
