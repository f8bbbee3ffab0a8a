// Package stream turns processed audio blocks into packets delivered to
// remote listeners, and re-times incoming packets before playback.
//
// The outbound path taps a processing unit's output once per quantum,
// accumulates samples in a capture ring buffer, slices out packets, and
// optionally compresses them through a fixed pool of workers before fanning
// the frames out to every target listener. Per-stream packet order is
// preserved by routing all of a stream's packets through the same worker;
// listeners are isolated from each other so one slow target never stalls
// the rest.
//
// The inbound path unmarshals frames, decodes the payload, and passes the
// samples through a per-stream latency compensator that shifts playback
// toward a fixed target end-to-end latency.
//
// The package performs no network I/O itself; frames are handed to a
// Transport implementation supplied by the caller.
package stream
