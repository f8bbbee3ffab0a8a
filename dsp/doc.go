// Package dsp implements the per-effect processing units for the voicefx
// engine.
//
// Each effect is a pure block-transform state machine: given a block of
// samples and the parameter values captured at block entry, it produces the
// same number of output samples deterministically. Units pre-size every
// internal buffer at construction so that steady-state processing never
// allocates, which makes them safe to run on the real-time audio callback.
//
// The package also provides the fixed-capacity ring buffer shared by the
// delay-class effects and the streaming capture path, and the envelope
// follower shared by the compressor and vocoder.
package dsp
