package voicefx

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
	"github.com/voicemesh/voicefx/plugin"
	"github.com/voicemesh/voicefx/stream"
)

// Config holds the engine tunables.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate uint32
	// BlockSize is the number of samples per processing quantum.
	BlockSize int
	// PacketQuanta is how many quanta accumulate into one outbound packet.
	PacketQuanta int
	// CompressionWorkers is the size of the lossy compression pool.
	CompressionWorkers int
	// TargetLatency is the desired total end-to-end latency for inbound
	// streams.
	TargetLatency time.Duration
	// MaxCompensation bounds the delay added by latency compensation.
	MaxCompensation time.Duration
	// InputGain is the static gain applied ahead of every channel's effect
	// chain (1.0 = unity).
	InputGain float64
	// AutoGain enables automatic input gain control after the static gain.
	AutoGain bool
}

// DefaultConfig returns production defaults: 48 kHz, 256-sample quanta,
// four compression workers, 50 ms target latency.
func DefaultConfig() Config {
	return Config{
		SampleRate:         48000,
		BlockSize:          256,
		PacketQuanta:       4,
		CompressionWorkers: 4,
		TargetLatency:      stream.DefaultTargetLatency,
		MaxCompensation:    stream.DefaultMaxCompensation,
		InputGain:          1.0,
	}
}

// Engine is the top-level facade over effect processing, streaming, and
// latency compensation.
//
// ProcessBlock is the real-time entry point and must be called from a
// single dedicated callback goroutine. All other methods are control-plane
// and safe to call concurrently with the callback.
type Engine struct {
	cfg      Config
	manager  *plugin.Manager
	pipeline *stream.Pipeline
	receiver *stream.Receiver

	inputGain *dsp.Gain
	autoGain  *dsp.AutoGain
}

// New creates an engine wired to the given transport.
//
// Parameters:
//   - cfg: Engine tunables; zero values are rejected
//   - transport: Delivery contract for outbound frames and notifications
//
// Returns:
//   - *Engine: New engine with a running streaming pipeline
//   - error: Validation error for an unusable configuration
func New(cfg Config, transport stream.Transport) (*Engine, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"sample_rate": cfg.SampleRate,
		"block_size":  cfg.BlockSize,
		"workers":     cfg.CompressionWorkers,
	}).Info("Creating voicefx engine")

	manager, err := plugin.NewManager(float64(cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("creating plugin manager: %w", err)
	}

	streamCfg := stream.DefaultConfig()
	streamCfg.SampleRate = cfg.SampleRate
	streamCfg.Quantum = cfg.BlockSize
	streamCfg.PacketQuanta = cfg.PacketQuanta
	streamCfg.Workers = cfg.CompressionWorkers
	pipeline, err := stream.NewPipeline(streamCfg, transport)
	if err != nil {
		return nil, fmt.Errorf("creating streaming pipeline: %w", err)
	}

	receiver, err := stream.NewReceiver(cfg.SampleRate, cfg.TargetLatency, cfg.MaxCompensation)
	if err != nil {
		pipeline.Close()
		return nil, fmt.Errorf("creating stream receiver: %w", err)
	}

	inputGain, err := dsp.NewGain(cfg.InputGain)
	if err != nil {
		pipeline.Close()
		return nil, fmt.Errorf("creating input gain stage: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		manager:   manager,
		pipeline:  pipeline,
		receiver:  receiver,
		inputGain: inputGain,
	}
	if cfg.AutoGain {
		e.autoGain = dsp.NewAutoGain()
	}

	// Removing an instance stops its stream; committed parameter changes
	// reach remote listeners through the pipeline.
	manager.SetStreamControl(pipeline)

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"sample_rate": cfg.SampleRate,
		"auto_gain":   cfg.AutoGain,
	}).Info("Voicefx engine created successfully")

	return e, nil
}

// Plugins returns the plugin instance manager for lifecycle, parameter,
// and preset operations.
func (e *Engine) Plugins() *plugin.Manager {
	return e.manager
}

// Streams returns the streaming pipeline for stream lifecycle callbacks
// and session inspection.
func (e *Engine) Streams() *stream.Pipeline {
	return e.pipeline
}

// StartStreaming begins streaming a plugin instance's processed output to
// the given listeners.
//
// Returns:
//   - string: The new stream id
//   - error: plugin.ErrInstanceNotFound if the instance does not exist
func (e *Engine) StartStreaming(instanceID uint32, targets []string, quality stream.Quality) (string, error) {
	if _, err := e.manager.Instance(instanceID); err != nil {
		return "", err
	}
	return e.pipeline.StartStreaming(instanceID, targets, quality)
}

// StopStreaming stops an active stream, flushing in-flight packets and
// notifying every target.
func (e *Engine) StopStreaming(streamID string) error {
	return e.pipeline.StopStreaming(streamID)
}

// ProcessBlock runs one processing quantum for a channel, in place.
//
// The input stage applies static and automatic gain, then each instance in
// the channel's signal path picks up its staged parameter and bypass
// changes and transforms the block in series. Instances that are streaming
// have their output captured for packetization.
//
// This is the real-time callback entry point: it takes no locks and reads
// only immutable snapshots published by the control plane.
func (e *Engine) ProcessBlock(channel string, block []float32) {
	if len(block) == 0 {
		return
	}

	e.inputGain.Process(block)
	if e.autoGain != nil {
		e.autoGain.Process(block)
	}

	for _, inst := range e.manager.ChannelChain(channel) {
		inst.ApplyStaged()
		inst.Unit().Process(block)
		e.pipeline.Capture(inst.ID(), block)
	}
}

// ReceiveFrame accepts one inbound frame from the transport layer and
// returns a latency-compensated block ready for playback, with its sample
// rate.
func (e *Engine) ReceiveFrame(frame []byte, now time.Time) ([]float32, uint32, error) {
	return e.receiver.HandleFrame(frame, now)
}

// SetInputGain updates the static input gain (0.0 to 4.0).
func (e *Engine) SetInputGain(gain float64) error {
	return e.inputGain.SetGain(gain)
}

// Close stops all active streams and shuts down the pipeline.
func (e *Engine) Close() {
	logrus.WithFields(logrus.Fields{
		"function": "Engine.Close",
	}).Info("Closing voicefx engine")

	e.pipeline.Close()
}
