package dsp

import "errors"

// Sentinel errors for dsp package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrUnknownEffectType indicates a unit was requested for an effect
	// type that is not registered in the catalog.
	ErrUnknownEffectType = errors.New("unknown effect type")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrBufferUnderrun indicates a ring or delay buffer was starved of
	// data; callers substitute silence for the missing span rather than
	// stalling the processing callback.
	ErrBufferUnderrun = errors.New("buffer underrun")
)
