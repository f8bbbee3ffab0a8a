package dsp

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Gain implements static input gain with clipping protection.
//
// Gain values: 0.0 = silence, 1.0 = no change, >1.0 = amplification.
// The engine applies it ahead of a channel's effect chain; it is not a
// catalog effect type.
type Gain struct {
	gain float64
}

// NewGain creates a new gain stage.
//
// Parameters:
//   - gain: Linear gain multiplier (0.0 to 4.0)
//
// Returns:
//   - *Gain: New gain stage instance
//   - error: Validation error if gain is outside the supported range
func NewGain(gain float64) (*Gain, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewGain",
		"gain":     gain,
	}).Info("Creating new gain stage")

	if gain < 0.0 {
		logrus.WithFields(logrus.Fields{
			"function": "NewGain",
			"gain":     gain,
			"error":    "gain cannot be negative",
		}).Error("Gain validation failed")
		return nil, fmt.Errorf("gain cannot be negative: %f", gain)
	}
	if gain > 4.0 {
		logrus.WithFields(logrus.Fields{
			"function": "NewGain",
			"gain":     gain,
			"error":    "gain too high (max 4.0)",
		}).Error("Gain validation failed")
		return nil, fmt.Errorf("gain too high (max 4.0): %f", gain)
	}

	return &Gain{gain: gain}, nil
}

// Process applies the gain to a block in place, clamping to [-1, 1].
func (g *Gain) Process(block []float32) {
	for i, s := range block {
		v := float64(s) * g.gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		block[i] = float32(v)
	}
}

// SetGain updates the gain value.
func (g *Gain) SetGain(gain float64) error {
	if gain < 0.0 || gain > 4.0 {
		logrus.WithFields(logrus.Fields{
			"function": "Gain.SetGain",
			"gain":     gain,
			"error":    "gain out of range",
		}).Error("Gain validation failed")
		return fmt.Errorf("gain out of range (0.0 to 4.0): %f", gain)
	}
	g.gain = gain
	return nil
}

// GetGain returns the current gain value.
func (g *Gain) GetGain() float64 {
	return g.gain
}

// AutoGain implements automatic gain control.
//
// It follows the peak level with asymmetric smoothing and steers the applied
// gain toward a target listening level, with limits to avoid pumping or
// runaway amplification on silence.
type AutoGain struct {
	targetLevel float64
	currentGain float64
	peakLevel   float64
	attackRate  float64
	releaseRate float64
	minGain     float64
	maxGain     float64
}

// NewAutoGain creates an automatic gain control stage with defaults tuned
// for voice: target level 0.3, gain limits 0.1 to 4.0.
func NewAutoGain() *AutoGain {
	logrus.WithFields(logrus.Fields{
		"function": "NewAutoGain",
	}).Info("Creating new auto gain stage")

	return &AutoGain{
		targetLevel: 0.3,
		currentGain: 1.0,
		attackRate:  0.001,
		releaseRate: 0.0001,
		minGain:     0.1,
		maxGain:     4.0,
	}
}

// Process applies automatic gain control to a block in place.
func (a *AutoGain) Process(block []float32) {
	if len(block) == 0 {
		return
	}

	var peak float64
	for _, s := range block {
		if abs := math.Abs(float64(s)); abs > peak {
			peak = abs
		}
	}

	// Fast attack on rising level, slow release on falling.
	if peak > a.peakLevel {
		a.peakLevel += (peak - a.peakLevel) * 0.1
	} else {
		a.peakLevel += (peak - a.peakLevel) * 0.01
	}

	desired := a.maxGain
	if a.peakLevel > 0.001 {
		desired = a.targetLevel / a.peakLevel
	}
	if desired < a.minGain {
		desired = a.minGain
	} else if desired > a.maxGain {
		desired = a.maxGain
	}

	if desired > a.currentGain {
		a.currentGain += a.attackRate * float64(len(block))
		if a.currentGain > desired {
			a.currentGain = desired
		}
	} else {
		a.currentGain -= a.releaseRate * float64(len(block))
		if a.currentGain < desired {
			a.currentGain = desired
		}
	}

	for i, s := range block {
		v := float64(s) * a.currentGain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		block[i] = float32(v)
	}
}

// CurrentGain returns the gain currently being applied.
func (a *AutoGain) CurrentGain() float64 {
	return a.currentGain
}

// SetTargetLevel updates the target level (0.0 to 1.0).
func (a *AutoGain) SetTargetLevel(level float64) error {
	if level < 0.0 || level > 1.0 {
		logrus.WithFields(logrus.Fields{
			"function": "AutoGain.SetTargetLevel",
			"level":    level,
			"error":    "target level must be between 0.0 and 1.0",
		}).Error("Target level validation failed")
		return fmt.Errorf("target level must be between 0.0 and 1.0: %f", level)
	}
	a.targetLevel = level
	return nil
}
