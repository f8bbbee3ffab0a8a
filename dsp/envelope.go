package dsp

import "math"

// EnvelopeFollower tracks a smoothed estimate of signal level over time.
//
// It applies a one-pole filter to the absolute value of the input with
// separate attack and release coefficients derived from time constants:
// coeff = exp(-1/(time * sampleRate)). A rising input is tracked at the
// attack rate and a falling input at the release rate, which is the standard
// behavior for driving compression and vocoder band gains.
type EnvelopeFollower struct {
	attackCoef  float64
	releaseCoef float64
	envelope    float64
}

// NewEnvelopeFollower creates a follower with the given time constants.
// Times are in seconds; values are clamped to a minimum of one sample.
func NewEnvelopeFollower(attack, release, sampleRate float64) *EnvelopeFollower {
	f := &EnvelopeFollower{}
	f.SetTimes(attack, release, sampleRate)
	return f
}

// SetTimes updates the attack and release time constants.
func (f *EnvelopeFollower) SetTimes(attack, release, sampleRate float64) {
	minTime := 1.0 / sampleRate
	if attack < minTime {
		attack = minTime
	}
	if release < minTime {
		release = minTime
	}
	f.attackCoef = math.Exp(-1.0 / (attack * sampleRate))
	f.releaseCoef = math.Exp(-1.0 / (release * sampleRate))
}

// Follow advances the follower by one sample and returns the new envelope.
func (f *EnvelopeFollower) Follow(sample float64) float64 {
	level := math.Abs(sample)
	coef := f.releaseCoef
	if level > f.envelope {
		coef = f.attackCoef
	}
	f.envelope = coef*f.envelope + (1.0-coef)*level
	return f.envelope
}

// Envelope returns the current envelope value without advancing it.
func (f *EnvelopeFollower) Envelope() float64 {
	return f.envelope
}

// Reset clears the follower state.
func (f *EnvelopeFollower) Reset() {
	f.envelope = 0
}
