package dsp

import "math"

const distortionTableSize = 4096

// distortion applies a static nonlinear transfer curve from a precomputed
// lookup table, followed by a one-pole low-pass tone filter. The table is
// rebuilt in place when the drive parameter changes, which only ever happens
// at a block boundary.
type distortion struct {
	sampleRate float64

	drive float64
	tone  float64 // low-pass cutoff in Hz
	level float64

	table     [distortionTableSize + 1]float32
	toneCoef  float64
	toneState float64
}

func newDistortion(sampleRate float64) *distortion {
	d := &distortion{
		sampleRate: sampleRate,
		drive:      4.0,
		tone:       4000.0,
		level:      0.8,
	}
	d.rebuildTable()
	d.updateToneCoef()
	return d
}

// rebuildTable fills the transfer curve with a normalized tanh shaper.
// Index 0 maps to an input of -1.0, the last index to +1.0.
func (d *distortion) rebuildTable() {
	norm := math.Tanh(d.drive)
	if norm == 0 {
		norm = 1
	}
	for i := 0; i <= distortionTableSize; i++ {
		x := 2.0*float64(i)/float64(distortionTableSize) - 1.0
		d.table[i] = float32(math.Tanh(d.drive*x) / norm)
	}
}

func (d *distortion) updateToneCoef() {
	d.toneCoef = math.Exp(-2.0 * math.Pi * d.tone / d.sampleRate)
}

// shape looks up the transfer curve with linear interpolation. Inputs
// outside [-1, 1] saturate at the table edges.
func (d *distortion) shape(x float32) float32 {
	pos := (float64(x) + 1.0) * 0.5 * float64(distortionTableSize)
	if pos < 0 {
		pos = 0
	}
	if pos > float64(distortionTableSize) {
		pos = float64(distortionTableSize)
	}
	idx := int(pos)
	if idx >= distortionTableSize {
		return d.table[distortionTableSize]
	}
	frac := float32(pos - float64(idx))
	return d.table[idx]*(1-frac) + d.table[idx+1]*frac
}

func (d *distortion) process(block []float32) {
	for i, in := range block {
		shaped := float64(d.shape(in))
		d.toneState = shaped + d.toneCoef*(d.toneState-shaped)
		block[i] = float32(d.toneState * d.level)
	}
}

func (d *distortion) setParameter(name string, value float64) bool {
	switch name {
	case "drive":
		d.drive = math.Max(1.0, value)
		d.rebuildTable()
	case "tone":
		d.tone = value
		d.updateToneCoef()
	case "level":
		d.level = value
	default:
		return false
	}
	return true
}

func (d *distortion) reset() {
	d.toneState = 0
}
