package dsp

import "math"

// biquad implements a second-order IIR filter section (Direct Form I) with
// coefficients from the RBJ audio EQ cookbook formulas. The equalizer runs a
// series cascade of these; the vocoder uses the band-pass configuration.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

func (b *biquad) setCoefficients(b0, b1, b2, a0, a1, a2 float64) {
	inv := 1.0 / a0
	b.b0 = b0 * inv
	b.b1 = b1 * inv
	b.b2 = b2 * inv
	b.a1 = a1 * inv
	b.a2 = a2 * inv
}

// process advances the filter by one sample.
func (b *biquad) process(x0 float64) float64 {
	y0 := b.b0*x0 + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2 = b.x1
	b.x1 = x0
	b.y2 = b.y1
	b.y1 = y0
	return y0
}

func (b *biquad) reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// setLowShelf configures the section as a low shelf with the given corner
// frequency and gain in dB.
func (b *biquad) setLowShelf(sampleRate, frequency, q, gainDB float64) {
	a := math.Pow(10.0, gainDB/40.0)
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2.0 * q)
	beta := 2.0 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) - (a-1)*cosW + beta)
	b1 := 2 * a * ((a - 1) - (a+1)*cosW)
	b2 := a * ((a + 1) - (a-1)*cosW - beta)
	a0 := (a + 1) + (a-1)*cosW + beta
	a1 := -2 * ((a - 1) + (a+1)*cosW)
	a2 := (a + 1) + (a-1)*cosW - beta

	b.setCoefficients(b0, b1, b2, a0, a1, a2)
}

// setHighShelf configures the section as a high shelf.
func (b *biquad) setHighShelf(sampleRate, frequency, q, gainDB float64) {
	a := math.Pow(10.0, gainDB/40.0)
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2.0 * q)
	beta := 2.0 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosW + beta)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW)
	b2 := a * ((a + 1) + (a-1)*cosW - beta)
	a0 := (a + 1) - (a-1)*cosW + beta
	a1 := 2 * ((a - 1) - (a+1)*cosW)
	a2 := (a + 1) - (a-1)*cosW - beta

	b.setCoefficients(b0, b1, b2, a0, a1, a2)
}

// setPeaking configures the section as a peaking EQ band.
func (b *biquad) setPeaking(sampleRate, frequency, q, gainDB float64) {
	a := math.Pow(10.0, gainDB/40.0)
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2.0 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosW
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW
	a2 := 1 - alpha/a

	b.setCoefficients(b0, b1, b2, a0, a1, a2)
}

// setBandpass configures the section as a constant-peak band-pass.
func (b *biquad) setBandpass(sampleRate, frequency, q float64) {
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2.0 * q)

	b0 := alpha
	b1 := 0.0
	b2 := -alpha
	a0 := 1 + alpha
	a1 := -2 * cosW
	a2 := 1 - alpha

	b.setCoefficients(b0, b1, b2, a0, a1, a2)
}
