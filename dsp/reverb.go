package dsp

// Schroeder network reverberator: six parallel feedback comb lines with a
// one-pole damping filter inside each loop, followed by two series all-pass
// diffusers. Comb lengths are scaled from 44.1 kHz tunings and nudged to the
// next prime so no two lines share a common period, which keeps the decay
// tail dense instead of metallic.

// combTunings are reference delay lengths in samples at 44.1 kHz.
var combTunings = [6]int{1116, 1188, 1277, 1356, 1422, 1491}

// allpassTunings are reference diffuser lengths in samples at 44.1 kHz.
var allpassTunings = [2]int{556, 225}

const allpassFeedback = 0.5

type combLine struct {
	buf         []float32
	idx         int
	filterStore float64
}

func (c *combLine) process(input float32, feedback, damp float64) float32 {
	output := c.buf[c.idx]

	// One-pole low-pass in the feedback loop implements damping.
	c.filterStore = float64(output)*(1.0-damp) + c.filterStore*damp

	c.buf[c.idx] = input + float32(feedback*c.filterStore)
	c.idx++
	if c.idx >= len(c.buf) {
		c.idx = 0
	}
	return output
}

type allpassLine struct {
	buf []float32
	idx int
}

func (a *allpassLine) process(input float32) float32 {
	bufOut := a.buf[a.idx]

	// y[n] = -x[n] + x[n-D] + C * y[n-D]
	output := -input + bufOut
	a.buf[a.idx] = input + float32(allpassFeedback)*bufOut

	a.idx++
	if a.idx >= len(a.buf) {
		a.idx = 0
	}
	return output
}

type reverb struct {
	combs     [6]combLine
	allpasses [2]allpassLine

	feedback float64
	damping  float64
	wetLevel float64
}

func newReverb(sampleRate float64) *reverb {
	r := &reverb{
		feedback: 0.7,
		damping:  0.4,
		wetLevel: 0.3,
	}

	scale := sampleRate / 44100.0
	for i := range r.combs {
		length := nextPrime(int(float64(combTunings[i]) * scale))
		r.combs[i].buf = make([]float32, length)
	}
	for i := range r.allpasses {
		length := nextPrime(int(float64(allpassTunings[i]) * scale))
		r.allpasses[i].buf = make([]float32, length)
	}
	return r
}

func (r *reverb) process(block []float32) {
	for i, in := range block {
		var wet float32
		for c := range r.combs {
			wet += r.combs[c].process(in, r.feedback, r.damping)
		}
		wet *= 1.0 / 6.0

		for a := range r.allpasses {
			wet = r.allpasses[a].process(wet)
		}

		block[i] = in + wet*float32(r.wetLevel)
	}
}

func (r *reverb) setParameter(name string, value float64) bool {
	switch name {
	case "feedback":
		r.feedback = value
	case "damping":
		r.damping = value
	case "wetLevel":
		r.wetLevel = value
	default:
		return false
	}
	return true
}

func (r *reverb) reset() {
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
		r.combs[i].idx = 0
		r.combs[i].filterStore = 0
	}
	for i := range r.allpasses {
		for j := range r.allpasses[i].buf {
			r.allpasses[i].buf[j] = 0
		}
		r.allpasses[i].idx = 0
	}
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for {
		if isPrime(n) {
			return n
		}
		n++
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}
