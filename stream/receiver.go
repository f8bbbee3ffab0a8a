package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Receiver accepts inbound frames from the transport layer and turns them
// into ready-to-play sample blocks.
//
// Each incoming stream, identified by its SSRC, gets its own decoder state
// and latency compensator; streams never share buffers. Out-of-order or
// jittery arrival is tolerated: the compensation delay is recomputed and
// clamped per packet.
type Receiver struct {
	sampleRate uint32
	target     time.Duration
	maxDelay   time.Duration

	mu      sync.Mutex
	streams map[uint32]*inboundStream
}

// inboundStream is the per-SSRC receive state.
type inboundStream struct {
	comp       *Compensator
	opus       *opusDecoder
	sampleRate uint32
	lastSeq    uint16
	hasSeq     bool
}

// NewReceiver creates a receiver for inbound streams.
//
// Parameters:
//   - sampleRate: Sample rate assumed for PCM payloads in Hz
//   - target: Desired total end-to-end latency
//   - maxDelay: Upper bound on added compensation delay
//
// Returns:
//   - *Receiver: New receiver instance
//   - error: Validation error for non-positive arguments
func NewReceiver(sampleRate uint32, target, maxDelay time.Duration) (*Receiver, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewReceiver",
		"sample_rate": sampleRate,
		"target":      target.String(),
		"max_delay":   maxDelay.String(),
	}).Info("Creating stream receiver")

	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate cannot be zero")
	}
	if target < 0 || maxDelay <= 0 {
		return nil, fmt.Errorf("invalid latency bounds: target=%s max=%s", target, maxDelay)
	}

	return &Receiver{
		sampleRate: sampleRate,
		target:     target,
		maxDelay:   maxDelay,
		streams:    make(map[uint32]*inboundStream),
	}, nil
}

// HandleFrame processes one inbound frame: unmarshal, decode the payload
// for its wire format, and pass the samples through the stream's latency
// compensator.
//
// Parameters:
//   - frame: Raw RTP frame bytes from the transport layer
//   - now: Arrival time used to compute observed latency
//
// Returns:
//   - []float32: Latency-compensated samples ready for playback
//   - uint32: Sample rate of the returned block in Hz
//   - error: Any error that occurred during parsing or decoding
func (r *Receiver) HandleFrame(frame []byte, now time.Time) ([]float32, uint32, error) {
	parsed, err := parseFrame(frame)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Receiver.HandleFrame",
			"frame_size": len(frame),
			"error":      err.Error(),
		}).Error("Failed to parse inbound frame")
		return nil, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stream, err := r.streamForLocked(parsed)
	if err != nil {
		return nil, 0, err
	}

	if stream.hasSeq && parsed.sequence != stream.lastSeq+1 {
		logrus.WithFields(logrus.Fields{
			"function":          "Receiver.HandleFrame",
			"ssrc":              parsed.ssrc,
			"expected_sequence": stream.lastSeq + 1,
			"received_sequence": parsed.sequence,
		}).Warn("Sequence gap detected in inbound stream")
	}
	stream.lastSeq = parsed.sequence
	stream.hasSeq = true

	var samples []float32
	switch parsed.payloadType {
	case PayloadTypePCM:
		samples = decodePCM(parsed.payload)
	case PayloadTypeReduced:
		samples = decodeReduced(parsed.payload)
	case PayloadTypeOpus:
		// A stream may switch to Opus after starting on PCM; the decoder
		// is allocated the first time an Opus frame actually arrives.
		if stream.opus == nil {
			stream.opus = newOpusDecoder()
		}
		samples, _, err = stream.opus.decode(parsed.payload)
		if err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, fmt.Errorf("unknown payload type: %d", parsed.payloadType)
	}

	observed := now.Sub(parsed.captured)
	out := stream.comp.Process(samples, observed)

	logrus.WithFields(logrus.Fields{
		"function":     "Receiver.HandleFrame",
		"ssrc":         parsed.ssrc,
		"sample_count": len(out),
		"observed":     observed.String(),
	}).Debug("Inbound frame compensated")

	return out, stream.sampleRate, nil
}

// DropStream releases the receive state for an ended stream.
func (r *Receiver) DropStream(ssrc uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[ssrc]; ok {
		delete(r.streams, ssrc)
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.DropStream",
			"ssrc":     ssrc,
		}).Info("Dropped inbound stream state")
	}
}

// streamForLocked returns the per-SSRC state, creating it on first sight.
// Callers hold r.mu.
func (r *Receiver) streamForLocked(parsed inboundFrame) (*inboundStream, error) {
	if stream, ok := r.streams[parsed.ssrc]; ok {
		return stream, nil
	}

	rate := r.sampleRate
	comp, err := NewCompensator(rate, r.target, r.maxDelay)
	if err != nil {
		return nil, fmt.Errorf("creating compensator: %w", err)
	}

	stream := &inboundStream{
		comp:       comp,
		sampleRate: rate,
	}
	r.streams[parsed.ssrc] = stream

	logrus.WithFields(logrus.Fields{
		"function":     "Receiver.streamForLocked",
		"ssrc":         parsed.ssrc,
		"payload_type": parsed.payloadType,
		"sample_rate":  rate,
	}).Info("Accepted new inbound stream")

	return stream, nil
}
