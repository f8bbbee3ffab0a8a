package stream

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// RTP payload types used on the wire. PCM and reduced-PCM are the formats
// this pipeline originates; Opus frames arrive from remote peers only.
const (
	PayloadTypePCM     uint8 = 96
	PayloadTypeReduced uint8 = 97
	PayloadTypeOpus    uint8 = 111
)

// frameHeaderSize is the fixed prefix inside every RTP payload: the capture
// wall-clock timestamp in big-endian unix nanoseconds. The receive side uses
// it to compute observed latency for compensation.
const frameHeaderSize = 8

// Packet is one slice of captured audio handed to or received from the
// transport layer.
type Packet struct {
	StreamID   string
	Samples    []float32
	Timestamp  time.Time
	SampleRate uint32
}

// Framer wraps packet payloads into RTP frames for one stream.
//
// The SSRC is derived deterministically from the stream id; the sequence
// number increments per frame and the RTP timestamp advances by the sample
// count, so receivers can detect gaps and reorder.
type Framer struct {
	mu          sync.Mutex
	ssrc        uint32
	sequence    uint16
	rtpTime     uint32
	payloadType uint8
}

// NewFramer creates a framer for the given stream id and payload type.
func NewFramer(streamID string, payloadType uint8) *Framer {
	h := fnv.New32a()
	h.Write([]byte(streamID))
	ssrc := h.Sum32()

	logrus.WithFields(logrus.Fields{
		"function":     "NewFramer",
		"stream_id":    streamID,
		"ssrc":         ssrc,
		"payload_type": payloadType,
	}).Info("Created stream framer")

	return &Framer{
		ssrc:        ssrc,
		payloadType: payloadType,
	}
}

// SSRC returns the synchronization source identifier for this stream.
func (f *Framer) SSRC() uint32 {
	return f.ssrc
}

// Frame wraps an encoded audio payload into a marshaled RTP frame using
// the framer's configured payload type.
//
// Parameters:
//   - payload: Encoded audio data for one packet
//   - sampleCount: Number of audio samples the payload represents
//   - captured: Wall-clock capture time embedded in the frame header
//
// Returns:
//   - []byte: Marshaled RTP frame ready for delivery
//   - error: Any error that occurred during marshaling
func (f *Framer) Frame(payload []byte, sampleCount uint32, captured time.Time) ([]byte, error) {
	return f.FrameAs(f.payloadType, payload, sampleCount, captured)
}

// FrameAs is Frame with an explicit payload type for this frame only.
// Sequence number and RTP timestamp advance as usual, so a stream can mix
// formats without breaking the receiver's gap detection. The raw-PCM
// fallback of a lossy stream uses it to tag the packet with the format it
// actually carries.
func (f *Framer) FrameAs(payloadType uint8, payload []byte, sampleCount uint32, captured time.Time) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint64(body, uint64(captured.UnixNano()))
	copy(body[frameHeaderSize:], payload)

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: f.sequence,
			Timestamp:      f.rtpTime,
			SSRC:           f.ssrc,
		},
		Payload: body,
	}

	frame, err := packet.Marshal()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Framer.Frame",
			"ssrc":     f.ssrc,
			"error":    err.Error(),
		}).Error("Failed to marshal RTP frame")
		return nil, fmt.Errorf("failed to marshal RTP frame: %w", err)
	}

	f.sequence++
	f.rtpTime += sampleCount

	logrus.WithFields(logrus.Fields{
		"function":     "Framer.Frame",
		"ssrc":         f.ssrc,
		"sequence":     f.sequence,
		"rtp_time":     f.rtpTime,
		"payload_size": len(payload),
	}).Debug("Framed audio packet")

	return frame, nil
}

// inboundFrame is the parsed form of a received RTP frame.
type inboundFrame struct {
	ssrc        uint32
	sequence    uint16
	payloadType uint8
	captured    time.Time
	payload     []byte
}

// parseFrame unmarshals an RTP frame and splits off the capture timestamp
// header.
func parseFrame(frame []byte) (inboundFrame, error) {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(frame); err != nil {
		return inboundFrame{}, fmt.Errorf("failed to unmarshal RTP frame: %w", err)
	}
	if len(packet.Payload) < frameHeaderSize {
		return inboundFrame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(packet.Payload))
	}

	capturedNanos := int64(binary.BigEndian.Uint64(packet.Payload))
	return inboundFrame{
		ssrc:        packet.SSRC,
		sequence:    packet.SequenceNumber,
		payloadType: packet.PayloadType,
		captured:    time.Unix(0, capturedNanos),
		payload:     packet.Payload[frameHeaderSize:],
	}, nil
}
