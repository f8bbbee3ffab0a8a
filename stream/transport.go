package stream

// Transport is the delivery contract between the streaming pipeline and
// the signaling/transport layer that physically moves frames to peers.
//
// Implementations are invoked from broadcast goroutines and must be safe
// for concurrent use. A failure for one target must not affect delivery
// to other targets; the pipeline logs the failure and continues.
type Transport interface {
	// Deliver sends one framed packet to a target listener.
	Deliver(target string, frame []byte) error

	// NotifyStreamEnd informs a target that a stream has ended and no
	// further frames for it will arrive.
	NotifyStreamEnd(target string, streamID string) error

	// NotifyParameter forwards a committed effect parameter change to a
	// target so remote playback stays in sync with local processing.
	NotifyParameter(target string, streamID string, instanceID uint32, name string, value float64) error
}
