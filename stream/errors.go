package stream

import "errors"

// Sentinel errors for streaming operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrStreamNotFound indicates the stream id is not active.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrCompressionWorker indicates a compression worker failed to encode
	// a packet. The pipeline recovers by forwarding the raw packet.
	ErrCompressionWorker = errors.New("compression worker failure")

	// ErrListenerDelivery indicates delivery to one target listener failed.
	// Delivery to the remaining targets continues.
	ErrListenerDelivery = errors.New("listener delivery failure")

	// ErrPipelineClosed indicates the pipeline has been shut down.
	ErrPipelineClosed = errors.New("pipeline closed")

	// ErrFrameTooShort indicates an inbound frame payload is smaller than
	// the fixed frame header.
	ErrFrameTooShort = errors.New("frame payload too short")
)
