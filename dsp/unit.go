package dsp

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EffectType identifies one of the supported effect kinds.
type EffectType uint32

const (
	// EffectReverb is the Schroeder network reverberator
	EffectReverb EffectType = iota
	// EffectCompressor is the dB-domain dynamics compressor
	EffectCompressor
	// EffectEqualizer is the shelf/peaking biquad cascade
	EffectEqualizer
	// EffectDelay is the feedback delay line
	EffectDelay
	// EffectChorus is the LFO-modulated multi-voice chorus
	EffectChorus
	// EffectDistortion is the lookup-table waveshaper
	EffectDistortion
	// EffectPitchShift is the overlap-add pitch shifter
	EffectPitchShift
	// EffectVocoder is the band-pass analysis/synthesis vocoder
	EffectVocoder
)

// String returns the canonical catalog name of the effect type.
func (t EffectType) String() string {
	switch t {
	case EffectReverb:
		return "reverb"
	case EffectCompressor:
		return "compressor"
	case EffectEqualizer:
		return "equalizer"
	case EffectDelay:
		return "delay"
	case EffectChorus:
		return "chorus"
	case EffectDistortion:
		return "distortion"
	case EffectPitchShift:
		return "pitchshift"
	case EffectVocoder:
		return "vocoder"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// processor is the internal contract every per-type state machine satisfies.
// process transforms the block in place; setParameter reports whether the
// named parameter belongs to this effect.
type processor interface {
	process(block []float32)
	setParameter(name string, value float64) bool
	reset()
}

// Unit hosts the state machine for a single effect instance.
//
// The per-type state is held as a tagged variant: exactly one processor is
// constructed for the unit's effect type and the type never changes after
// creation. All state is owned exclusively by the unit; nothing is shared
// across units, so a unit can never corrupt another unit's buffers.
//
// A unit has two states, active and bypassed. Bypassing copies input to
// output unchanged while preserving internal state, so re-enabling does not
// reset delay lines or envelopes.
type Unit struct {
	effectType EffectType
	sampleRate float64
	bypassed   bool
	state      processor
}

// NewUnit creates a processing unit for the given effect type.
//
// All internal buffers are sized at construction; steady-state processing
// performs no allocation.
//
// Parameters:
//   - effectType: One of the eight supported effect kinds
//   - sampleRate: Sample rate in Hz the unit will process at
//
// Returns:
//   - *Unit: New processing unit with default parameter values
//   - error: ErrUnknownEffectType or ErrInvalidSampleRate
func NewUnit(effectType EffectType, sampleRate float64) (*Unit, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewUnit",
		"effect_type": effectType.String(),
		"sample_rate": sampleRate,
	}).Info("Creating new processing unit")

	if sampleRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewUnit",
			"sample_rate": sampleRate,
			"error":       "sample rate must be positive",
		}).Error("Processing unit validation failed")
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	var state processor
	switch effectType {
	case EffectReverb:
		state = newReverb(sampleRate)
	case EffectCompressor:
		state = newCompressor(sampleRate)
	case EffectEqualizer:
		state = newEqualizer(sampleRate)
	case EffectDelay:
		state = newDelay(sampleRate)
	case EffectChorus:
		state = newChorus(sampleRate)
	case EffectDistortion:
		state = newDistortion(sampleRate)
	case EffectPitchShift:
		state = newPitchShifter(sampleRate)
	case EffectVocoder:
		state = newVocoder(sampleRate)
	default:
		logrus.WithFields(logrus.Fields{
			"function":    "NewUnit",
			"effect_type": uint32(effectType),
			"error":       "effect type not registered",
		}).Error("Processing unit validation failed")
		return nil, fmt.Errorf("%w: %d", ErrUnknownEffectType, uint32(effectType))
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewUnit",
		"effect_type": effectType.String(),
		"sample_rate": sampleRate,
	}).Info("Processing unit created successfully")

	return &Unit{
		effectType: effectType,
		sampleRate: sampleRate,
		state:      state,
	}, nil
}

// Type returns the effect type the unit was created with.
func (u *Unit) Type() EffectType {
	return u.effectType
}

// Process transforms a block of samples in place.
//
// The output is a deterministic function of internal state and the parameter
// values in effect at block entry. A zero-length block leaves internal state
// unchanged. When the unit is bypassed the block passes through untouched
// while internal state is preserved.
func (u *Unit) Process(block []float32) {
	if len(block) == 0 || u.bypassed {
		return
	}
	u.state.process(block)
}

// SetBypassed switches the unit between active and bypassed.
func (u *Unit) SetBypassed(bypassed bool) {
	u.bypassed = bypassed
}

// Bypassed reports whether the unit is currently bypassed.
func (u *Unit) Bypassed() bool {
	return u.bypassed
}

// Apply installs a set of parameter values on the unit.
//
// Apply is intended to be called only at a block boundary by the owner of
// the processing callback; parameter values never change mid-block. Unknown
// names are ignored here because range and name validation happen before
// staging.
func (u *Unit) Apply(params map[string]float64) {
	for name, value := range params {
		u.state.setParameter(name, value)
	}
}

// SetParameter installs a single parameter value on the unit and reports
// whether the name is known to the effect.
func (u *Unit) SetParameter(name string, value float64) bool {
	return u.state.setParameter(name, value)
}

// GainReduction reports the compressor's current smoothed gain reduction
// in dB, for meter displays. Units of every other effect type report zero.
func (u *Unit) GainReduction() float64 {
	if c, ok := u.state.(*compressor); ok {
		return c.gainReduction()
	}
	return 0
}

// Reset clears all internal state while keeping parameter values.
func (u *Unit) Reset() {
	u.state.reset()
}
