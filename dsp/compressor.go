package dsp

import "math"

// compressor implements a feed-forward dynamics compressor working in the
// dB domain. A peak envelope follower estimates the input level; when the
// level exceeds the threshold, the target gain reduction is
// (level - threshold) * (1 - 1/ratio) dB. The applied reduction is smoothed
// toward that target with separate one-pole coefficients derived from the
// attack and release times: coeff = exp(-1/(time * sampleRate)).
type compressor struct {
	sampleRate float64

	threshold  float64 // dB
	ratio      float64
	attack     float64 // seconds
	release    float64 // seconds
	makeupGain float64 // dB

	detector    *EnvelopeFollower
	attackCoef  float64
	releaseCoef float64

	// smoothed gain reduction in dB, always >= 0
	reduction float64
}

const silenceFloorDB = -96.0

func newCompressor(sampleRate float64) *compressor {
	c := &compressor{
		sampleRate: sampleRate,
		threshold:  -20.0,
		ratio:      4.0,
		attack:     0.005,
		release:    0.050,
		makeupGain: 0.0,
		detector:   NewEnvelopeFollower(0.001, 0.010, sampleRate),
	}
	c.updateCoefficients()
	return c
}

func (c *compressor) updateCoefficients() {
	c.attackCoef = math.Exp(-1.0 / (c.attack * c.sampleRate))
	c.releaseCoef = math.Exp(-1.0 / (c.release * c.sampleRate))
}

func (c *compressor) process(block []float32) {
	makeup := math.Pow(10.0, c.makeupGain/20.0)

	for i, in := range block {
		envelope := c.detector.Follow(float64(in))

		levelDB := silenceFloorDB
		if envelope > 0 {
			levelDB = 20.0 * math.Log10(envelope)
		}

		target := 0.0
		if levelDB > c.threshold {
			target = (levelDB - c.threshold) * (1.0 - 1.0/c.ratio)
		}

		coef := c.releaseCoef
		if target > c.reduction {
			coef = c.attackCoef
		}
		c.reduction = coef*c.reduction + (1.0-coef)*target

		gain := math.Pow(10.0, -c.reduction/20.0) * makeup
		block[i] = in * float32(gain)
	}
}

func (c *compressor) setParameter(name string, value float64) bool {
	switch name {
	case "threshold":
		c.threshold = value
	case "ratio":
		if value < 1.0 {
			value = 1.0
		}
		c.ratio = value
	case "attack":
		c.attack = math.Max(0.0001, value)
		c.updateCoefficients()
	case "release":
		c.release = math.Max(0.001, value)
		c.updateCoefficients()
	case "makeupGain":
		c.makeupGain = value
	default:
		return false
	}
	return true
}

// gainReduction reports the current smoothed reduction in dB, surfaced
// through Unit.GainReduction for meter displays.
func (c *compressor) gainReduction() float64 {
	return c.reduction
}

func (c *compressor) reset() {
	c.detector.Reset()
	c.reduction = 0
}
