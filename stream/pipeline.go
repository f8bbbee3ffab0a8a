package stream

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
)

// Config holds the tunables of the streaming pipeline.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate uint32
	// Quantum is the number of samples per real-time processing block.
	Quantum int
	// PacketQuanta is how many quanta accumulate before a packet is sliced.
	PacketQuanta int
	// Workers is the size of the compression worker pool.
	Workers int
	// WorkerQueueDepth is the per-worker job queue capacity.
	WorkerQueueDepth int
	// TargetQueueDepth is the per-target frame queue capacity.
	TargetQueueDepth int
}

// DefaultConfig returns production defaults: 48 kHz audio, 256-sample
// quanta, ~21 ms packets, four compression workers.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		Quantum:          256,
		PacketQuanta:     4,
		Workers:          4,
		WorkerQueueDepth: 64,
		TargetQueueDepth: 32,
	}
}

// compressJob is one packet queued for a compression worker.
type compressJob struct {
	session  *Session
	samples  []float32
	captured time.Time
}

// Pipeline captures processed audio per quantum, slices it into packets,
// compresses lossy streams through a fixed worker pool, and fans finished
// frames out to every registered target listener.
//
// All packets of one stream hash to the same worker, so per-stream order is
// preserved even though the workers run in parallel. Lossless streams skip
// the pool and frame directly in the capture path; the two paths are
// mutually exclusive per stream so they can never reorder each other.
type Pipeline struct {
	cfg       Config
	transport Transport

	workers   []chan compressJob
	workersWG sync.WaitGroup
	closed    atomic.Bool

	mu       sync.RWMutex
	sessions map[string]*Session

	// live is an immutable instance-id index rebuilt on start/stop so the
	// real-time capture tap resolves its session without taking a lock.
	live atomic.Pointer[map[uint32]*Session]

	onStarted func(streamID string, instanceID uint32)
	onEnded   func(streamID string, instanceID uint32)
}

// NewPipeline creates a streaming pipeline and starts its compression
// worker pool.
//
// Parameters:
//   - cfg: Pipeline tunables; zero values are rejected
//   - transport: Delivery contract to the signaling/transport layer
//
// Returns:
//   - *Pipeline: New pipeline with running workers
//   - error: Validation error for an unusable configuration
func NewPipeline(cfg Config, transport Transport) (*Pipeline, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewPipeline",
		"sample_rate": cfg.SampleRate,
		"quantum":     cfg.Quantum,
		"workers":     cfg.Workers,
	}).Info("Creating streaming pipeline")

	if transport == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewPipeline",
			"error":    "transport cannot be nil",
		}).Error("Pipeline validation failed")
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if cfg.SampleRate == 0 || cfg.Quantum <= 0 || cfg.PacketQuanta <= 0 {
		return nil, fmt.Errorf("invalid pipeline config: sampleRate=%d quantum=%d packetQuanta=%d",
			cfg.SampleRate, cfg.Quantum, cfg.PacketQuanta)
	}
	if cfg.Workers <= 0 || cfg.WorkerQueueDepth <= 0 || cfg.TargetQueueDepth <= 0 {
		return nil, fmt.Errorf("invalid pipeline config: workers=%d workerQueue=%d targetQueue=%d",
			cfg.Workers, cfg.WorkerQueueDepth, cfg.TargetQueueDepth)
	}

	p := &Pipeline{
		cfg:       cfg,
		transport: transport,
		workers:   make([]chan compressJob, cfg.Workers),
		sessions:  make(map[string]*Session),
	}
	empty := make(map[uint32]*Session)
	p.live.Store(&empty)

	for i := range p.workers {
		ch := make(chan compressJob, cfg.WorkerQueueDepth)
		p.workers[i] = ch
		p.workersWG.Add(1)
		go p.runWorker(i, ch)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewPipeline",
		"workers":  cfg.Workers,
	}).Info("Streaming pipeline created successfully")

	return p, nil
}

// OnStreamStarted registers the callback invoked once per started stream.
func (p *Pipeline) OnStreamStarted(cb func(streamID string, instanceID uint32)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStarted = cb
}

// OnStreamEnded registers the callback invoked once per ended stream.
func (p *Pipeline) OnStreamEnded(cb func(streamID string, instanceID uint32)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = cb
}

// StartStreaming begins capturing a plugin instance's output and streaming
// it to the given listeners.
//
// The capture ring buffer is sized for at least ten processing quanta. The
// quality mode is fixed for the stream's lifetime. Starting a second stream
// for an instance replaces the first.
//
// Returns:
//   - string: The new stream id
//   - error: ErrPipelineClosed after Close
func (p *Pipeline) StartStreaming(instanceID uint32, targets []string, quality Quality) (string, error) {
	logrus.WithFields(logrus.Fields{
		"function":     "Pipeline.StartStreaming",
		"instance_id":  instanceID,
		"target_count": len(targets),
		"quality":      quality.String(),
	}).Info("Starting stream")

	if p.closed.Load() {
		return "", ErrPipelineClosed
	}

	streamID := uuid.NewString()
	packetSamples := p.cfg.Quantum * p.cfg.PacketQuanta

	ringQuanta := 10
	if 2*p.cfg.PacketQuanta > ringQuanta {
		ringQuanta = 2 * p.cfg.PacketQuanta
	}
	capture, err := dsp.NewRingBuffer(ringQuanta * p.cfg.Quantum)
	if err != nil {
		return "", fmt.Errorf("allocating capture buffer: %w", err)
	}

	payloadType := PayloadTypePCM
	if quality == QualityLossy {
		payloadType = PayloadTypeReduced
	}

	s := &Session{
		id:            streamID,
		instanceID:    instanceID,
		quality:       quality,
		sampleRate:    p.cfg.SampleRate,
		capture:       capture,
		packetSamples: packetSamples,
		scratch:       make([]float32, packetSamples),
		framer:        NewFramer(streamID, payloadType),
		worker:        workerFor(streamID, len(p.workers)),
	}
	s.senders = make([]*targetSender, 0, len(targets))
	for _, target := range targets {
		s.senders = append(s.senders,
			newTargetSender(target, streamID, p.transport, p.cfg.TargetQueueDepth, &s.sendersWG))
	}
	s.active.Store(true)

	p.mu.Lock()
	if prev, ok := p.liveByInstanceLocked(instanceID); ok {
		p.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":    "Pipeline.StartStreaming",
			"instance_id": instanceID,
			"stream_id":   prev.id,
		}).Info("Instance already streaming, stopping previous stream")
		if err := p.StopStreaming(prev.id); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Pipeline.StartStreaming",
				"stream_id": prev.id,
				"error":     err.Error(),
			}).Warn("Failed to stop previous stream")
		}
		p.mu.Lock()
	}
	p.sessions[streamID] = s
	p.rebuildLiveLocked()
	started := p.onStarted
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "Pipeline.StartStreaming",
		"stream_id":      streamID,
		"instance_id":    instanceID,
		"packet_samples": packetSamples,
		"worker":         s.worker,
	}).Info("Stream started successfully")

	if started != nil {
		started(streamID, instanceID)
	}
	return streamID, nil
}

// Capture taps one processed block for the instance's active stream.
//
// It is called from the real-time callback once per quantum and never
// blocks: session lookup reads an immutable snapshot, the ring buffer is
// lock-free, and compression jobs are handed off on a buffered channel with
// a drop fallback.
func (p *Pipeline) Capture(instanceID uint32, block []float32) {
	s := (*p.live.Load())[instanceID]
	if s == nil || !s.enter() {
		return
	}
	defer s.exit()

	s.capture.Write(block)

	for s.capture.Len() >= s.packetSamples {
		n := s.capture.Read(s.scratch)
		samples := make([]float32, n)
		copy(samples, s.scratch[:n])
		captured := time.Now()

		if s.quality == QualityLossy {
			s.pending.Add(1)
			select {
			case p.workers[s.worker] <- compressJob{session: s, samples: samples, captured: captured}:
			default:
				// Dropping keeps per-stream order intact; framing it here
				// instead would overtake packets already queued.
				s.pending.Done()
				logrus.WithFields(logrus.Fields{
					"function":  "Pipeline.Capture",
					"stream_id": s.id,
					"worker":    s.worker,
				}).Warn("Compression worker backed up, dropping packet")
			}
		} else {
			s.frameAndFanout(samples, captured)
		}
	}
}

// StreamingInstance reports whether the instance currently has an active
// stream and returns its stream id.
func (p *Pipeline) StreamingInstance(instanceID uint32) (string, bool) {
	s := (*p.live.Load())[instanceID]
	if s == nil {
		return "", false
	}
	return s.id, true
}

// Session returns the active session for a stream id.
func (p *Pipeline) Session(streamID string) (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[streamID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}
	return s, nil
}

// StopStreaming deactivates a stream, flushes in-flight packets, and
// notifies every registered target of stream end. It is safe to call while
// the capture tap is running: the tap is waited out before any sender is
// closed.
func (p *Pipeline) StopStreaming(streamID string) error {
	logrus.WithFields(logrus.Fields{
		"function":  "Pipeline.StopStreaming",
		"stream_id": streamID,
	}).Info("Stopping stream")

	p.mu.Lock()
	s, ok := p.sessions[streamID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}
	delete(p.sessions, streamID)
	p.rebuildLiveLocked()
	ended := p.onEnded
	p.mu.Unlock()

	// Rendezvous with the capture tap: clear the flag, then wait for any
	// capture call already inside the session to leave. After the busy
	// count drains no new frames or compression jobs can be submitted.
	s.active.Store(false)
	for s.busy.Load() != 0 {
		time.Sleep(50 * time.Microsecond)
	}

	// Flush: wait out queued compression jobs, then drain each target's
	// queue; senders notify their target of stream end as they exit.
	s.pending.Wait()
	for _, sender := range s.senders {
		sender.close()
	}
	s.sendersWG.Wait()

	logrus.WithFields(logrus.Fields{
		"function":    "Pipeline.StopStreaming",
		"stream_id":   streamID,
		"instance_id": s.instanceID,
	}).Info("Stream stopped successfully")

	if ended != nil {
		ended(streamID, s.instanceID)
	}
	return nil
}

// StopByInstance stops the instance's active stream, if any. It is
// idempotent and safe to call for instances that never streamed.
func (p *Pipeline) StopByInstance(instanceID uint32) {
	streamID, ok := p.StreamingInstance(instanceID)
	if !ok {
		return
	}
	if err := p.StopStreaming(streamID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "Pipeline.StopByInstance",
			"instance_id": instanceID,
			"stream_id":   streamID,
			"error":       err.Error(),
		}).Warn("Stream already stopped")
	}
}

// BroadcastParameter forwards a committed parameter change to every target
// of the instance's active stream. Delivery failures are isolated per
// target and do not interrupt the broadcast.
func (p *Pipeline) BroadcastParameter(instanceID uint32, name string, value float64) {
	s := (*p.live.Load())[instanceID]
	if s == nil {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Pipeline.BroadcastParameter",
		"instance_id": instanceID,
		"stream_id":   s.id,
		"parameter":   name,
		"value":       value,
	}).Debug("Broadcasting parameter change to stream targets")

	for _, sender := range s.senders {
		if err := p.transport.NotifyParameter(sender.target, s.id, instanceID, name, value); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Pipeline.BroadcastParameter",
				"stream_id": s.id,
				"target":    sender.target,
				"error":     ErrListenerDelivery.Error() + ": " + err.Error(),
			}).Warn("Parameter broadcast failed for target")
		}
	}
}

// Close stops all active streams and shuts down the worker pool. The
// pipeline cannot be reused afterwards.
func (p *Pipeline) Close() {
	if p.closed.Swap(true) {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.Close",
	}).Info("Closing streaming pipeline")

	p.mu.RLock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.RUnlock()
	for _, id := range ids {
		if err := p.StopStreaming(id); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Pipeline.Close",
				"stream_id": id,
				"error":     err.Error(),
			}).Warn("Stream already stopped during close")
		}
	}

	for _, ch := range p.workers {
		close(ch)
	}
	p.workersWG.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.Close",
	}).Info("Streaming pipeline closed")
}

func (p *Pipeline) runWorker(index int, jobs <-chan compressJob) {
	defer p.workersWG.Done()

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.runWorker",
		"worker":   index,
	}).Debug("Compression worker started")

	for job := range jobs {
		job.session.frameAndFanout(job.samples, job.captured)
		job.session.pending.Done()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.runWorker",
		"worker":   index,
	}).Debug("Compression worker stopped")
}

// liveByInstanceLocked finds the active session for an instance. Callers
// hold p.mu.
func (p *Pipeline) liveByInstanceLocked(instanceID uint32) (*Session, bool) {
	for _, s := range p.sessions {
		if s.instanceID == instanceID {
			return s, true
		}
	}
	return nil, false
}

// rebuildLiveLocked publishes a fresh instance-id index for the capture
// tap. Callers hold p.mu.
func (p *Pipeline) rebuildLiveLocked() {
	live := make(map[uint32]*Session, len(p.sessions))
	for _, s := range p.sessions {
		live[s.instanceID] = s
	}
	p.live.Store(&live)
}

// workerFor deterministically assigns a stream to one compression worker,
// so all of a stream's packets serialize through the same worker.
func workerFor(streamID string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(streamID))
	return int(h.Sum32() % uint32(workers))
}
