package dsp

import "math"

const (
	chorusMaxVoices  = 4
	chorusBaseDelay  = 20.0 // milliseconds
	chorusMaxDepthMs = 10.0
	chorusHeadroom   = 1.25
)

// lfo is a sine low-frequency oscillator used to modulate chorus voice read
// offsets. Each voice owns one, phase-offset from its siblings.
type lfo struct {
	phase     float64
	increment float64
}

func (l *lfo) setFrequency(hz, sampleRate float64) {
	l.increment = hz / sampleRate
}

func (l *lfo) next() float64 {
	v := math.Sin(2.0 * math.Pi * l.phase)
	l.phase += l.increment
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return v
}

// chorus modulates the read offset of a shared delay line with one LFO per
// voice. Voices are phase-offset across the LFO cycle and the delayed reads
// use linear interpolation so the modulation stays free of zipper noise.
type chorus struct {
	sampleRate float64

	rate   float64 // LFO rate in Hz
	depth  float64 // modulation depth in ms
	mix    float64
	voices int

	line      []float32
	writeIdx  int
	lfos      [chorusMaxVoices]lfo
	maxOffset int
}

func newChorus(sampleRate float64) *chorus {
	maxDelayMs := (chorusBaseDelay + chorusMaxDepthMs) * chorusHeadroom
	size := int(maxDelayMs * sampleRate / 1000.0)

	c := &chorus{
		sampleRate: sampleRate,
		rate:       0.8,
		depth:      3.0,
		mix:        0.5,
		voices:     2,
		line:       make([]float32, size),
		maxOffset:  size - 1,
	}
	c.updateLFOs()
	return c
}

func (c *chorus) updateLFOs() {
	for v := 0; v < chorusMaxVoices; v++ {
		c.lfos[v].setFrequency(c.rate, c.sampleRate)
		c.lfos[v].phase = float64(v) / float64(chorusMaxVoices)
	}
}

func (c *chorus) process(block []float32) {
	size := len(c.line)

	for i, in := range block {
		c.line[c.writeIdx] = in

		var wet float32
		for v := 0; v < c.voices; v++ {
			mod := c.lfos[v].next()

			offsetMs := chorusBaseDelay + c.depth*mod
			offset := offsetMs * c.sampleRate / 1000.0
			if offset < 1.0 {
				offset = 1.0
			}
			if offset > float64(c.maxOffset) {
				offset = float64(c.maxOffset)
			}

			readPos := float64(c.writeIdx) - offset
			if readPos < 0 {
				readPos += float64(size)
			}
			idx := int(readPos)
			frac := float32(readPos - float64(idx))
			next := (idx + 1) % size

			wet += c.line[idx]*(1-frac) + c.line[next]*frac
		}
		wet /= float32(c.voices)

		block[i] = in*float32(1.0-c.mix) + wet*float32(c.mix)
		c.writeIdx = (c.writeIdx + 1) % size
	}
}

func (c *chorus) setParameter(name string, value float64) bool {
	switch name {
	case "rate":
		c.rate = math.Max(0.01, math.Min(10.0, value))
		for v := range c.lfos {
			c.lfos[v].setFrequency(c.rate, c.sampleRate)
		}
	case "depth":
		c.depth = math.Max(0.0, math.Min(chorusMaxDepthMs, value))
	case "mix":
		c.mix = value
	case "voices":
		n := int(value)
		if n < 1 {
			n = 1
		}
		if n > chorusMaxVoices {
			n = chorusMaxVoices
		}
		c.voices = n
	default:
		return false
	}
	return true
}

func (c *chorus) reset() {
	for i := range c.line {
		c.line[i] = 0
	}
	c.writeIdx = 0
	c.updateLFOs()
}
