package stream

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
)

// Default latency compensation tuning: re-time playback toward 50 ms total
// end-to-end latency, compensating at most 100 ms.
const (
	DefaultTargetLatency   = 50 * time.Millisecond
	DefaultMaxCompensation = 100 * time.Millisecond
)

// Compensator re-times one incoming stream against a target total latency.
//
// Packets that arrive faster than the target are delayed by the difference;
// packets that arrive late play immediately. The samples pass through a
// fixed delay buffer and only the read offset moves between packets, so
// adapting to changing network latency shifts playback smoothly instead of
// jumping. A read that reaches past the written history yields silence
// rather than stalling playback.
type Compensator struct {
	sampleRate uint32
	target     time.Duration
	maxDelay   time.Duration
	buf        *dsp.RingBuffer
}

// NewCompensator creates a latency compensator.
//
// Parameters:
//   - sampleRate: Sample rate of the incoming stream in Hz
//   - target: Desired total end-to-end latency
//   - maxDelay: Upper bound on added compensation delay; also sizes the
//     delay buffer
//
// Returns:
//   - *Compensator: New compensator instance
//   - error: Validation error for non-positive arguments
func NewCompensator(sampleRate uint32, target, maxDelay time.Duration) (*Compensator, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewCompensator",
		"sample_rate": sampleRate,
		"target":      target.String(),
		"max_delay":   maxDelay.String(),
	}).Info("Creating latency compensator")

	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate cannot be zero")
	}
	if target < 0 || maxDelay <= 0 {
		return nil, fmt.Errorf("invalid latency bounds: target=%s max=%s", target, maxDelay)
	}

	// Capacity covers the maximum compensation delay plus an equal span of
	// arriving samples, so a full-delay read never wraps onto fresh data.
	capacity := 2 * durationToSamples(maxDelay, sampleRate)
	buf, err := dsp.NewRingBuffer(capacity)
	if err != nil {
		return nil, fmt.Errorf("allocating delay buffer: %w", err)
	}

	return &Compensator{
		sampleRate: sampleRate,
		target:     target,
		maxDelay:   maxDelay,
		buf:        buf,
	}, nil
}

// CompensationFor returns the delay added for a packet with the given
// observed latency: target minus observed, clamped to [0, maxDelay].
func (c *Compensator) CompensationFor(observed time.Duration) time.Duration {
	compensation := c.target - observed
	if compensation < 0 {
		compensation = 0
	}
	if compensation > c.maxDelay {
		compensation = c.maxDelay
	}
	return compensation
}

// Process writes a packet's samples into the delay buffer and reads out an
// equally sized block time-shifted by the packet's compensation delay.
//
// The returned block is ready for playback. Spans of the delay buffer that
// have not been written yet come out as silence.
func (c *Compensator) Process(samples []float32, observed time.Duration) []float32 {
	compensation := c.CompensationFor(observed)
	delaySamples := durationToSamples(compensation, c.sampleRate)

	logrus.WithFields(logrus.Fields{
		"function":      "Compensator.Process",
		"observed":      observed.String(),
		"compensation":  compensation.String(),
		"delay_samples": delaySamples,
		"sample_count":  len(samples),
	}).Debug("Compensating packet latency")

	c.buf.Write(samples)

	out := make([]float32, len(samples))
	for i := range out {
		out[i] = c.buf.Tap(delaySamples + len(samples) - i)
	}
	return out
}

// Reset discards buffered samples, e.g. after a long gap in the stream.
func (c *Compensator) Reset() {
	c.buf.Reset()
}

func durationToSamples(d time.Duration, sampleRate uint32) int {
	return int(d.Seconds() * float64(sampleRate))
}
