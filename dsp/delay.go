package dsp

import "math"

// maxDelaySeconds bounds the delay line so the buffer can be sized once at
// construction regardless of later parameter changes.
const maxDelaySeconds = 2.0

// delay is a single write-ahead circular buffer with feedback: the delayed
// sample is read back into the write path scaled by the feedback gain.
type delay struct {
	sampleRate float64

	line *RingBuffer

	delayTime float64 // milliseconds
	feedback  float64
	mix       float64

	delaySamples int
}

func newDelay(sampleRate float64) *delay {
	capacity := int(maxDelaySeconds * sampleRate)
	// NewRingBuffer only fails on non-positive capacity, which a validated
	// sample rate rules out.
	line, _ := NewRingBuffer(capacity)

	d := &delay{
		sampleRate: sampleRate,
		line:       line,
		delayTime:  250.0,
		feedback:   0.35,
		mix:        0.5,
	}
	d.updateDelaySamples()
	return d
}

func (d *delay) updateDelaySamples() {
	samples := int(d.delayTime * d.sampleRate / 1000.0)
	if samples < 1 {
		samples = 1
	}
	if samples > d.line.Capacity() {
		samples = d.line.Capacity()
	}
	d.delaySamples = samples
}

func (d *delay) process(block []float32) {
	for i, in := range block {
		wet := d.line.Tap(d.delaySamples)
		d.line.Push(in + wet*float32(d.feedback))
		block[i] = in*float32(1.0-d.mix) + wet*float32(d.mix)
	}
}

func (d *delay) setParameter(name string, value float64) bool {
	switch name {
	case "delayTime":
		d.delayTime = value
		d.updateDelaySamples()
	case "feedback":
		d.feedback = math.Min(value, 0.95)
	case "mix":
		d.mix = value
	default:
		return false
	}
	return true
}

func (d *delay) reset() {
	d.line.Reset()
}
