package dsp

// equalizer is a series cascade of a low shelf, two peaking bands, and a
// high shelf. Every band is independently tunable in center frequency, gain
// and Q; coefficient updates happen only when a parameter changes, never
// inside the sample loop.
type equalizer struct {
	sampleRate float64

	lowFreq  float64
	lowGain  float64
	lowQ     float64
	p1Freq   float64
	p1Gain   float64
	p1Q      float64
	p2Freq   float64
	p2Gain   float64
	p2Q      float64
	highFreq float64
	highGain float64
	highQ    float64

	sections [4]biquad
}

func newEqualizer(sampleRate float64) *equalizer {
	e := &equalizer{
		sampleRate: sampleRate,
		lowFreq:    120.0,
		lowQ:       0.707,
		p1Freq:     800.0,
		p1Q:        1.0,
		p2Freq:     3000.0,
		p2Q:        1.0,
		highFreq:   8000.0,
		highQ:      0.707,
	}
	e.updateCoefficients()
	return e
}

func (e *equalizer) updateCoefficients() {
	e.sections[0].setLowShelf(e.sampleRate, e.lowFreq, e.lowQ, e.lowGain)
	e.sections[1].setPeaking(e.sampleRate, e.p1Freq, e.p1Q, e.p1Gain)
	e.sections[2].setPeaking(e.sampleRate, e.p2Freq, e.p2Q, e.p2Gain)
	e.sections[3].setHighShelf(e.sampleRate, e.highFreq, e.highQ, e.highGain)
}

func (e *equalizer) process(block []float32) {
	for i := range block {
		x := float64(block[i])
		for s := range e.sections {
			x = e.sections[s].process(x)
		}
		block[i] = float32(x)
	}
}

func (e *equalizer) setParameter(name string, value float64) bool {
	switch name {
	case "lowFreq":
		e.lowFreq = value
	case "lowGain":
		e.lowGain = value
	case "lowQ":
		e.lowQ = value
	case "peak1Freq":
		e.p1Freq = value
	case "peak1Gain":
		e.p1Gain = value
	case "peak1Q":
		e.p1Q = value
	case "peak2Freq":
		e.p2Freq = value
	case "peak2Gain":
		e.p2Gain = value
	case "peak2Q":
		e.p2Q = value
	case "highFreq":
		e.highFreq = value
	case "highGain":
		e.highGain = value
	case "highQ":
		e.highQ = value
	default:
		return false
	}
	e.updateCoefficients()
	return true
}

func (e *equalizer) reset() {
	for i := range e.sections {
		e.sections[i].reset()
	}
}
