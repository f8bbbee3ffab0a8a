package dsp

import "math"

const (
	pitchMaxWindow = 1024
	pitchMaxRatio  = 2.0
	pitchMinRatio  = 0.5
)

// pitchShifter implements time-domain overlap-add pitch shifting. Every
// analysis hop it extracts pitchRatio*windowSize samples of input history,
// resamples them to windowSize with linear interpolation, applies a Hann
// window and overlap-adds the frame into the output accumulator. The
// synthesis hop equals the analysis hop, so duration is preserved while the
// resampling shifts pitch by the ratio.
//
// A Hann window is used for both analysis and synthesis; with a hop of
// windowSize/overlapFactor the window overlaps sum to a constant, which the
// accumulator normalizes out.
type pitchShifter struct {
	pitchRatio    float64
	windowSize    int
	overlapFactor int
	hopSize       int

	history *RingBuffer

	window   [pitchMaxWindow]float64
	frame    [pitchMaxWindow]float64
	accum    [pitchMaxWindow]float32
	ready    *RingBuffer
	hopCount int
}

func newPitchShifter(sampleRate float64) *pitchShifter {
	history, _ := NewRingBuffer(int(pitchMaxWindow*pitchMaxRatio) + 4)
	ready, _ := NewRingBuffer(pitchMaxWindow)

	p := &pitchShifter{
		pitchRatio:    1.0,
		windowSize:    512,
		overlapFactor: 4,
		history:       history,
		ready:         ready,
	}
	p.configure()
	return p
}

// configure derives the hop size and rebuilds the Hann window in place.
func (p *pitchShifter) configure() {
	p.hopSize = p.windowSize / p.overlapFactor
	for i := 0; i < p.windowSize; i++ {
		p.window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(p.windowSize-1)))
	}
}

// historyAt reads the input history at a fractional delay in samples.
func (p *pitchShifter) historyAt(delay float64) float64 {
	if delay < 1.0 {
		delay = 1.0
	}
	idx := int(delay)
	frac := delay - float64(idx)
	a := float64(p.history.Tap(idx))
	b := float64(p.history.Tap(idx + 1))
	return a*(1.0-frac) + b*frac
}

// synthesize extracts, resamples and windows one frame, overlap-adds it into
// the accumulator, and releases one hop of finished samples.
func (p *pitchShifter) synthesize() {
	span := p.pitchRatio * float64(p.windowSize)

	// Oldest frame sample sits deepest in history; frame index i advances
	// toward the present by pitchRatio input samples per output sample.
	for i := 0; i < p.windowSize; i++ {
		delay := span - p.pitchRatio*float64(i)
		p.frame[i] = p.historyAt(delay) * p.window[i]
	}

	// Hann windows at hop = windowSize/overlapFactor sum to overlap/2.
	norm := 2.0 / float64(p.overlapFactor)
	for i := 0; i < p.windowSize; i++ {
		p.accum[i] += float32(p.frame[i] * norm)
	}

	for i := 0; i < p.hopSize; i++ {
		p.ready.Push(p.accum[i])
	}
	copy(p.accum[:p.windowSize-p.hopSize], p.accum[p.hopSize:p.windowSize])
	for i := p.windowSize - p.hopSize; i < p.windowSize; i++ {
		p.accum[i] = 0
	}
}

func (p *pitchShifter) process(block []float32) {
	var out [1]float32
	for i, in := range block {
		p.history.Push(in)
		p.hopCount++
		if p.hopCount >= p.hopSize {
			p.hopCount = 0
			p.synthesize()
		}

		if p.ready.Read(out[:]) == 1 {
			block[i] = out[0]
		} else {
			block[i] = 0
		}
	}
}

func (p *pitchShifter) setParameter(name string, value float64) bool {
	switch name {
	case "pitchRatio":
		p.pitchRatio = math.Max(pitchMinRatio, math.Min(pitchMaxRatio, value))
	case "windowSize":
		size := int(value)
		if size >= 64 && size <= pitchMaxWindow && size&(size-1) == 0 {
			p.windowSize = size
			p.configure()
		}
	case "overlapFactor":
		factor := int(value)
		if factor == 2 || factor == 4 {
			p.overlapFactor = factor
			p.configure()
		}
	default:
		return false
	}
	return true
}

func (p *pitchShifter) reset() {
	p.history.Reset()
	p.ready.Reset()
	for i := range p.accum {
		p.accum[i] = 0
	}
	p.hopCount = 0
}
