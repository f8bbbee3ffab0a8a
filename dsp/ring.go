package dsp

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RingBuffer is a fixed-capacity circular sample store.
//
// Write and read positions always wrap modulo the capacity, so no
// out-of-bounds access is representable. When more samples are written than
// the buffer can hold, the oldest samples are overwritten: a reader always
// observes the most recent window of audio in order.
//
// A RingBuffer is owned by exactly one producer and read by at most one
// consumer; it performs no internal locking and must not be shared across
// streams or plugin instances.
type RingBuffer struct {
	buf []float32
	w   int // next write position
	n   int // samples currently stored
}

// NewRingBuffer creates a ring buffer holding up to capacity samples.
//
// Parameters:
//   - capacity: Maximum number of samples the buffer can hold
//
// Returns:
//   - *RingBuffer: New ring buffer instance
//   - error: Validation error if capacity is not positive
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		logrus.WithFields(logrus.Fields{
			"function": "NewRingBuffer",
			"capacity": capacity,
			"error":    "capacity must be positive",
		}).Error("Ring buffer validation failed")
		return nil, fmt.Errorf("ring buffer capacity must be positive: %d", capacity)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewRingBuffer",
		"capacity": capacity,
	}).Debug("Ring buffer created")

	return &RingBuffer{
		buf: make([]float32, capacity),
	}, nil
}

// Capacity returns the fixed capacity of the buffer in samples.
func (r *RingBuffer) Capacity() int {
	return len(r.buf)
}

// Len returns the number of samples currently stored.
func (r *RingBuffer) Len() int {
	return r.n
}

// Write appends samples to the buffer, overwriting the oldest samples when
// the buffer is full. It never allocates and never blocks.
func (r *RingBuffer) Write(samples []float32) {
	for _, s := range samples {
		r.buf[r.w] = s
		r.w = (r.w + 1) % len(r.buf)
		if r.n < len(r.buf) {
			r.n++
		}
	}
}

// Push appends a single sample, overwriting the oldest when full.
func (r *RingBuffer) Push(sample float32) {
	r.buf[r.w] = sample
	r.w = (r.w + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// Read copies up to len(dst) of the oldest stored samples into dst in
// submission order, consuming them. It returns the number of samples copied;
// a short count indicates the buffer held fewer samples than requested.
func (r *RingBuffer) Read(dst []float32) int {
	count := len(dst)
	if count > r.n {
		count = r.n
	}

	start := (r.w - r.n + len(r.buf)) % len(r.buf)
	for i := 0; i < count; i++ {
		dst[i] = r.buf[(start+i)%len(r.buf)]
	}
	r.n -= count

	return count
}

// Tap returns the sample written delay positions before the current write
// cursor without consuming anything. A delay of 1 is the most recently
// written sample. The delay is clamped to the buffer capacity; tapping a
// span that has not been written yet yields the zero samples the buffer was
// initialized with.
func (r *RingBuffer) Tap(delay int) float32 {
	if delay < 1 {
		delay = 1
	}
	if delay > len(r.buf) {
		delay = len(r.buf)
	}
	return r.buf[(r.w-delay+len(r.buf))%len(r.buf)]
}

// Reset discards all stored samples and clears the backing store.
func (r *RingBuffer) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.w = 0
	r.n = 0
}
