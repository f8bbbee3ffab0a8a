package dsp

import (
	"errors"
	"math"
	"testing"
)

const testSampleRate = 48000.0

var allEffectTypes = []EffectType{
	EffectReverb,
	EffectCompressor,
	EffectEqualizer,
	EffectDelay,
	EffectChorus,
	EffectDistortion,
	EffectPitchShift,
	EffectVocoder,
}

func TestNewUnit_UnknownEffectType(t *testing.T) {
	_, err := NewUnit(EffectType(99), testSampleRate)
	if err == nil {
		t.Fatal("NewUnit() expected error for unknown effect type, got nil")
	}
	if !errors.Is(err, ErrUnknownEffectType) {
		t.Errorf("NewUnit() error = %v, want ErrUnknownEffectType", err)
	}
}

func TestNewUnit_InvalidSampleRate(t *testing.T) {
	_, err := NewUnit(EffectReverb, 0)
	if !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("NewUnit() error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestUnit_EmptyBlockLeavesStateUnchanged(t *testing.T) {
	impulse := func() []float32 {
		block := make([]float32, 64)
		block[0] = 1.0
		return block
	}

	for _, effectType := range allEffectTypes {
		t.Run(effectType.String(), func(t *testing.T) {
			reference, err := NewUnit(effectType, testSampleRate)
			if err != nil {
				t.Fatalf("NewUnit() error: %v", err)
			}
			probed, err := NewUnit(effectType, testSampleRate)
			if err != nil {
				t.Fatalf("NewUnit() error: %v", err)
			}

			// Processing zero-length blocks must not disturb state.
			for i := 0; i < 10; i++ {
				probed.Process(nil)
				probed.Process([]float32{})
			}

			refBlock := impulse()
			probedBlock := impulse()
			reference.Process(refBlock)
			probed.Process(probedBlock)

			for i := range refBlock {
				if refBlock[i] != probedBlock[i] {
					t.Fatalf("sample %d diverged after empty blocks: %f != %f",
						i, probedBlock[i], refBlock[i])
				}
			}
		})
	}
}

func TestUnit_BypassPassesInputUnchanged(t *testing.T) {
	for _, effectType := range allEffectTypes {
		t.Run(effectType.String(), func(t *testing.T) {
			unit, err := NewUnit(effectType, testSampleRate)
			if err != nil {
				t.Fatalf("NewUnit() error: %v", err)
			}

			block := make([]float32, 128)
			for i := range block {
				block[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / testSampleRate))
			}
			original := make([]float32, len(block))
			copy(original, block)

			unit.SetBypassed(true)
			if !unit.Bypassed() {
				t.Fatal("Bypassed() = false after SetBypassed(true)")
			}
			unit.Process(block)

			for i := range block {
				if block[i] != original[i] {
					t.Fatalf("bypassed unit altered sample %d: %f != %f", i, block[i], original[i])
				}
			}
		})
	}
}

func TestUnit_BypassPreservesInternalState(t *testing.T) {
	// Two delay units receive the same impulse; one is toggled through
	// bypass afterwards. Their delayed echoes must match because bypass
	// preserves the delay line.
	reference, err := NewUnit(EffectDelay, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}
	toggled, err := NewUnit(EffectDelay, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}

	impulse := make([]float32, 256)
	impulse[0] = 1.0
	refBlock := make([]float32, len(impulse))
	togBlock := make([]float32, len(impulse))
	copy(refBlock, impulse)
	copy(togBlock, impulse)
	reference.Process(refBlock)
	toggled.Process(togBlock)

	toggled.SetBypassed(true)
	toggled.SetBypassed(false)

	// Advance both units to where the echo of the impulse appears.
	blocks := int(testSampleRate) / len(impulse)
	for b := 0; b < blocks; b++ {
		ref := make([]float32, len(impulse))
		tog := make([]float32, len(impulse))
		reference.Process(ref)
		toggled.Process(tog)
		for i := range ref {
			if ref[i] != tog[i] {
				t.Fatalf("block %d sample %d diverged after bypass toggle: %f != %f",
					b, i, tog[i], ref[i])
			}
		}
	}
}

func TestUnit_SetParameterReportsUnknownNames(t *testing.T) {
	unit, err := NewUnit(EffectReverb, testSampleRate)
	if err != nil {
		t.Fatalf("NewUnit() error: %v", err)
	}

	if !unit.SetParameter("feedback", 0.5) {
		t.Error("SetParameter(feedback) = false, want true")
	}
	if unit.SetParameter("noSuchParameter", 0.5) {
		t.Error("SetParameter(noSuchParameter) = true, want false")
	}
}

func TestUnit_ProcessIsDeterministic(t *testing.T) {
	for _, effectType := range allEffectTypes {
		t.Run(effectType.String(), func(t *testing.T) {
			a, _ := NewUnit(effectType, testSampleRate)
			b, _ := NewUnit(effectType, testSampleRate)

			blockA := make([]float32, 256)
			blockB := make([]float32, 256)
			for i := range blockA {
				v := float32(math.Sin(2*math.Pi*220*float64(i)/testSampleRate)) * 0.5
				blockA[i] = v
				blockB[i] = v
			}

			a.Process(blockA)
			b.Process(blockB)

			for i := range blockA {
				if blockA[i] != blockB[i] {
					t.Fatalf("sample %d nondeterministic: %f != %f", i, blockA[i], blockB[i])
				}
			}
		})
	}
}
