package stream

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// targetSender delivers frames to one listener from its own goroutine.
//
// Each target gets an independent bounded queue, so a slow or failed
// listener only ever loses its own frames; it never blocks the capture
// loop or delivery to other targets. When the queue is full the frame is
// dropped for that target, not queued unbounded.
type targetSender struct {
	target    string
	streamID  string
	transport Transport
	queue     chan []byte
	dropped   atomic.Uint64
}

// newTargetSender creates a sender and starts its delivery goroutine; the
// goroutine is accounted for in wg and exits when the queue is closed,
// notifying the target of stream end after draining remaining frames.
func newTargetSender(target, streamID string, transport Transport, depth int, wg *sync.WaitGroup) *targetSender {
	s := &targetSender{
		target:    target,
		streamID:  streamID,
		transport: transport,
		queue:     make(chan []byte, depth),
	}

	wg.Add(1)
	go s.run(wg)
	return s
}

// send queues one frame for delivery, dropping it if the target is backed
// up. Each target receives its own copy of the frame bytes.
func (s *targetSender) send(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case s.queue <- buf:
	default:
		n := s.dropped.Add(1)
		logrus.WithFields(logrus.Fields{
			"function":      "targetSender.send",
			"stream_id":     s.streamID,
			"target":        s.target,
			"total_dropped": n,
		}).Warn("Target queue full, dropping frame")
	}
}

// close stops the sender after all queued frames have been delivered.
func (s *targetSender) close() {
	close(s.queue)
}

func (s *targetSender) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for frame := range s.queue {
		if err := s.transport.Deliver(s.target, frame); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "targetSender.run",
				"stream_id": s.streamID,
				"target":    s.target,
				"error":     ErrListenerDelivery.Error() + ": " + err.Error(),
			}).Warn("Frame delivery failed, stream continues for remaining targets")
		}
	}

	if err := s.transport.NotifyStreamEnd(s.target, s.streamID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "targetSender.run",
			"stream_id": s.streamID,
			"target":    s.target,
			"error":     err.Error(),
		}).Warn("Stream end notification failed")
	}

	logrus.WithFields(logrus.Fields{
		"function":  "targetSender.run",
		"stream_id": s.streamID,
		"target":    s.target,
		"dropped":   s.dropped.Load(),
	}).Info("Target sender drained and stopped")
}
