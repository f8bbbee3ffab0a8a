package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
)

// Quality selects the wire format of a stream. It is decided at stream
// start and never changes for the stream's lifetime.
type Quality uint8

const (
	// QualityLossless streams full 16-bit PCM and bypasses the
	// compression workers entirely.
	QualityLossless Quality = iota
	// QualityLossy streams reduced-PCM through the compression pool.
	QualityLossy
)

// String returns the canonical name of the quality mode.
func (q Quality) String() string {
	switch q {
	case QualityLossless:
		return "lossless"
	case QualityLossy:
		return "lossy"
	default:
		return "unknown"
	}
}

// Session is the state of one active outbound stream.
//
// The capture ring buffer is written only by the real-time callback; packet
// slicing happens in the same callback, so the buffer never needs a lock.
// Exactly one goroutine frames packets for a session: the callback itself
// for lossless streams, or the single hash-assigned compression worker for
// lossy streams. The two paths are mutually exclusive per stream.
type Session struct {
	id         string
	instanceID uint32
	quality    Quality
	sampleRate uint32

	capture       *dsp.RingBuffer
	packetSamples int
	scratch       []float32

	framer  *Framer
	senders []*targetSender
	worker  int

	active    atomic.Bool
	busy      atomic.Int32   // capture calls currently inside the session
	pending   sync.WaitGroup // in-flight compression jobs
	sendersWG sync.WaitGroup // delivery goroutines, one per target
}

// enter marks a capture call as inside the session. It fails once the
// session has been deactivated; teardown waits for the busy count to drain
// before it touches the senders, so a successful enter guarantees the
// senders stay open until the matching exit.
func (s *Session) enter() bool {
	s.busy.Add(1)
	if !s.active.Load() {
		s.busy.Add(-1)
		return false
	}
	return true
}

func (s *Session) exit() {
	s.busy.Add(-1)
}

// ID returns the stream identifier.
func (s *Session) ID() string {
	return s.id
}

// InstanceID returns the plugin instance this session streams from.
func (s *Session) InstanceID() uint32 {
	return s.instanceID
}

// Quality returns the stream's quality mode.
func (s *Session) Quality() Quality {
	return s.quality
}

// SampleRate returns the stream's sample rate in Hz.
func (s *Session) SampleRate() uint32 {
	return s.sampleRate
}

// Active reports whether the session is still capturing.
func (s *Session) Active() bool {
	return s.active.Load()
}

// Targets returns the listener ids registered at stream start.
func (s *Session) Targets() []string {
	targets := make([]string, len(s.senders))
	for i, sender := range s.senders {
		targets[i] = sender.target
	}
	return targets
}

// frameAndFanout encodes one packet's samples for the session's quality
// mode, wraps them in an RTP frame, and queues the frame on every target.
// Encoding failures degrade to raw PCM for that packet only.
func (s *Session) frameAndFanout(samples []float32, captured time.Time) {
	var payload []byte
	if s.quality == QualityLossy {
		payload = encodeReduced(samples)
	} else {
		payload = encodePCM(samples)
	}

	frame, err := s.framer.Frame(payload, uint32(len(samples)), captured)
	if err != nil && s.quality == QualityLossy {
		logrus.WithFields(logrus.Fields{
			"function":  "Session.frameAndFanout",
			"stream_id": s.id,
			"error":     ErrCompressionWorker.Error() + ": " + err.Error(),
		}).Warn("Compressed frame failed, falling back to raw PCM for this packet")
		frame, err = s.framer.FrameAs(PayloadTypePCM, encodePCM(samples), uint32(len(samples)), captured)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Session.frameAndFanout",
			"stream_id": s.id,
			"error":     err.Error(),
		}).Error("Dropping packet that could not be framed")
		return
	}

	for _, sender := range s.senders {
		sender.send(frame)
	}
}
