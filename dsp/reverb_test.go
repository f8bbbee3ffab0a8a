package dsp

import (
	"math"
	"testing"
)

// blockPeak returns the maximum absolute sample of a block.
func blockPeak(block []float32) float64 {
	var peak float64
	for _, s := range block {
		if abs := math.Abs(float64(s)); abs > peak {
			peak = abs
		}
	}
	return peak
}

func TestReverb_ImpulseResponseDecays(t *testing.T) {
	unit, err := NewUnit(EffectReverb, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{
		"feedback": 0.7,
		"damping":  0.4,
		"wetLevel": 1.0,
	})

	const blockSize = 1024
	block := make([]float32, blockSize)
	block[0] = 1.0
	unit.Process(block)

	// Track the peak of consecutive windows of the tail; the envelope must
	// trend downward and die out.
	var peaks []float64
	for i := 0; i < 60; i++ {
		tail := make([]float32, blockSize)
		unit.Process(tail)
		peaks = append(peaks, blockPeak(tail))
	}

	early := peaks[2]
	mid := peaks[20]
	late := peaks[len(peaks)-1]

	if early <= 0 {
		t.Fatal("reverb tail is silent immediately after the impulse")
	}
	if mid >= early {
		t.Errorf("reverb envelope not decaying: mid %f >= early %f", mid, early)
	}
	if late >= mid {
		t.Errorf("reverb envelope not decaying: late %f >= mid %f", late, mid)
	}
	if late > early*0.1 {
		t.Errorf("reverb tail decayed too little: late %f vs early %f", late, early)
	}
}

func TestReverb_FeedbackLengthensDecay(t *testing.T) {
	tailEnergy := func(feedback float64) float64 {
		unit, err := NewUnit(EffectReverb, testSampleRate)
		if err != nil {
			t.Fatalf("NewUnit() error: %v", err)
		}
		unit.Apply(map[string]float64{"feedback": feedback, "wetLevel": 1.0, "damping": 0.2})

		block := make([]float32, 1024)
		block[0] = 1.0
		unit.Process(block)

		// Skip the early reflections, then measure the remaining energy.
		var energy float64
		for i := 0; i < 40; i++ {
			tail := make([]float32, 1024)
			unit.Process(tail)
			if i >= 10 {
				for _, s := range tail {
					energy += float64(s) * float64(s)
				}
			}
		}
		return energy
	}

	short := tailEnergy(0.3)
	long := tailEnergy(0.85)
	if long <= short {
		t.Errorf("higher feedback should lengthen decay: energy %f <= %f", long, short)
	}
}

func TestReverb_DryPassThroughAtZeroWet(t *testing.T) {
	unit, err := NewUnit(EffectReverb, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	unit.Apply(map[string]float64{"wetLevel": 0.0})

	block := make([]float32, 128)
	for i := range block {
		block[i] = float32(math.Sin(2 * math.Pi * 330 * float64(i) / testSampleRate))
	}
	original := make([]float32, len(block))
	copy(original, block)

	unit.Process(block)
	for i := range block {
		if block[i] != original[i] {
			t.Fatalf("wetLevel=0 altered sample %d: %f != %f", i, block[i], original[i])
		}
	}
}
