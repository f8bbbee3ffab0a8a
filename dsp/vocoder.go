package dsp

import "math"

const (
	vocoderMaxBands = 16
	vocoderLowHz    = 100.0
	vocoderHighHz   = 8000.0
)

// vocoder splits a carrier and the modulator input into matching band-pass
// banks. A per-band envelope follower on the modulator drives the gain of
// the corresponding carrier band; the gained carrier bands sum to the
// output. The carrier is an internally generated sawtooth, which gives the
// classic robot-voice character without needing a second input path.
type vocoder struct {
	sampleRate float64

	bands       int
	attack      float64
	release     float64
	carrierFreq float64

	modFilters   [vocoderMaxBands]biquad
	carFilters   [vocoderMaxBands]biquad
	followers    [vocoderMaxBands]EnvelopeFollower
	sawPhase     float64
	sawIncrement float64
}

func newVocoder(sampleRate float64) *vocoder {
	v := &vocoder{
		sampleRate:  sampleRate,
		bands:       8,
		attack:      0.005,
		release:     0.020,
		carrierFreq: 110.0,
	}
	v.configure()
	return v
}

// configure lays the active bands out logarithmically between the low and
// high band edges and retunes both filter banks and the followers.
func (v *vocoder) configure() {
	ratio := math.Pow(vocoderHighHz/vocoderLowHz, 1.0/float64(v.bands))
	freq := vocoderLowHz * math.Sqrt(ratio)

	// Q chosen so adjacent bands cross over near their edges.
	q := math.Sqrt(ratio) / (ratio - 1.0)

	for i := 0; i < v.bands; i++ {
		v.modFilters[i].setBandpass(v.sampleRate, freq, q)
		v.carFilters[i].setBandpass(v.sampleRate, freq, q)
		v.followers[i].SetTimes(v.attack, v.release, v.sampleRate)
		freq *= ratio
	}
	v.sawIncrement = v.carrierFreq / v.sampleRate
}

// carrierSample advances the sawtooth oscillator by one sample.
func (v *vocoder) carrierSample() float64 {
	s := 2.0*v.sawPhase - 1.0
	v.sawPhase += v.sawIncrement
	if v.sawPhase >= 1.0 {
		v.sawPhase -= 1.0
	}
	return s
}

func (v *vocoder) process(block []float32) {
	for i, in := range block {
		modulator := float64(in)
		carrier := v.carrierSample()

		var out float64
		for b := 0; b < v.bands; b++ {
			modBand := v.modFilters[b].process(modulator)
			carBand := v.carFilters[b].process(carrier)
			out += carBand * v.followers[b].Follow(modBand)
		}
		block[i] = float32(out)
	}
}

func (v *vocoder) setParameter(name string, value float64) bool {
	switch name {
	case "bands":
		n := int(value)
		if n >= 4 && n <= vocoderMaxBands {
			v.bands = n
			v.configure()
		}
	case "attack":
		v.attack = math.Max(0.0005, value)
		v.configure()
	case "release":
		v.release = math.Max(0.001, value)
		v.configure()
	case "carrierFreq":
		v.carrierFreq = value
		v.sawIncrement = v.carrierFreq / v.sampleRate
	default:
		return false
	}
	return true
}

func (v *vocoder) reset() {
	for i := range v.modFilters {
		v.modFilters[i].reset()
		v.carFilters[i].reset()
		v.followers[i].Reset()
	}
	v.sawPhase = 0
}
