package voicefx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicemesh/voicefx/dsp"
	"github.com/voicemesh/voicefx/plugin"
	"github.com/voicemesh/voicefx/stream"
)

// recordingTransport captures delivered frames and notifications per target.
type recordingTransport struct {
	mu     sync.Mutex
	frames map[string][][]byte
	ends   map[string]int
	params map[string][]string
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		frames: make(map[string][][]byte),
		ends:   make(map[string]int),
		params: make(map[string][]string),
	}
}

func (r *recordingTransport) Deliver(target string, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[target] = append(r.frames[target], frame)
	return nil
}

func (r *recordingTransport) NotifyStreamEnd(target, streamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends[target]++
	return nil
}

func (r *recordingTransport) NotifyParameter(target, streamID string, instanceID uint32, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[target] = append(r.params[target], name)
	return nil
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.BlockSize = 64
	cfg.PacketQuanta = 2
	return cfg
}

func TestEngineProcessBlockIdentityChain(t *testing.T) {
	e, err := New(testEngineConfig(), newRecordingTransport())
	require.NoError(t, err)
	defer e.Close()

	// An equalizer at default (flat) settings passes audio unchanged, so
	// the whole path input stage -> staged apply -> unit process is
	// observable as identity.
	_, err = e.Plugins().CreateInstance(dsp.EffectEqualizer, "main", nil)
	require.NoError(t, err)

	block := make([]float32, 64)
	want := make([]float32, 64)
	for i := range block {
		block[i] = float32(i%13)/26.0 - 0.25
		want[i] = block[i]
	}

	e.ProcessBlock("main", block)
	for i := range block {
		assert.InDelta(t, want[i], block[i], 1e-6, "sample %d through flat chain", i)
	}

	// Unknown channel: input stage still runs, no chain applies.
	e.ProcessBlock("other", block)
	// Empty block is a no-op.
	e.ProcessBlock("main", nil)
}

func TestEngineStreamingEndToEnd(t *testing.T) {
	transport := newRecordingTransport()
	e, err := New(testEngineConfig(), transport)
	require.NoError(t, err)
	defer e.Close()

	inst, err := e.Plugins().CreateInstance(dsp.EffectEqualizer, "main", nil)
	require.NoError(t, err)

	streamID, err := e.StartStreaming(inst.ID(), []string{"listener-1"}, stream.QualityLossless)
	require.NoError(t, err)

	block := make([]float32, 64)
	for i := range block {
		block[i] = 0.25
	}
	for i := 0; i < 4; i++ {
		e.ProcessBlock("main", block)
	}

	// Parameter change mid-stream: applied locally at the next block and
	// broadcast to stream targets.
	require.NoError(t, e.Plugins().SetParameter(inst.ID(), "lowGain", 3.0))

	require.NoError(t, e.StopStreaming(streamID))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Len(t, transport.frames["listener-1"], 2, "packet count per target")
	assert.Equal(t, 1, transport.ends["listener-1"], "stream end count per target")
	assert.Equal(t, []string{"lowGain"}, transport.params["listener-1"], "parameter broadcasts")
}

func TestEngineStartStreamingUnknownInstance(t *testing.T) {
	e, err := New(testEngineConfig(), newRecordingTransport())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.StartStreaming(42, []string{"listener-1"}, stream.QualityLossless)
	assert.ErrorIs(t, err, plugin.ErrInstanceNotFound)
}

func TestEngineRemoveInstanceStopsStream(t *testing.T) {
	transport := newRecordingTransport()
	e, err := New(testEngineConfig(), transport)
	require.NoError(t, err)
	defer e.Close()

	inst, err := e.Plugins().CreateInstance(dsp.EffectReverb, "main", nil)
	require.NoError(t, err)
	_, err = e.StartStreaming(inst.ID(), []string{"listener-1"}, stream.QualityLossy)
	require.NoError(t, err)

	require.NoError(t, e.Plugins().RemoveInstance(inst.ID()))

	transport.mu.Lock()
	endCount := transport.ends["listener-1"]
	transport.mu.Unlock()
	assert.Equal(t, 1, endCount, "stream end count after removal")

	_, ok := e.Streams().StreamingInstance(inst.ID())
	assert.False(t, ok, "instance still streaming after removal")
}

func TestEngineReceiveFrameRoundTrip(t *testing.T) {
	transport := newRecordingTransport()
	e, err := New(testEngineConfig(), transport)
	require.NoError(t, err)
	defer e.Close()

	inst, err := e.Plugins().CreateInstance(dsp.EffectEqualizer, "main", nil)
	require.NoError(t, err)
	streamID, err := e.StartStreaming(inst.ID(), []string{"listener-1"}, stream.QualityLossless)
	require.NoError(t, err)

	block := make([]float32, 64)
	for i := range block {
		block[i] = 0.125
	}
	e.ProcessBlock("main", block)
	e.ProcessBlock("main", block)

	require.NoError(t, e.StopStreaming(streamID))

	transport.mu.Lock()
	frames := transport.frames["listener-1"]
	transport.mu.Unlock()
	require.Len(t, frames, 1)

	samples, rate, err := e.ReceiveFrame(frames[0], time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), rate)
	assert.Len(t, samples, 128)
}

func TestEngineInputGain(t *testing.T) {
	cfg := testEngineConfig()
	cfg.InputGain = 2.0
	e, err := New(cfg, newRecordingTransport())
	require.NoError(t, err)
	defer e.Close()

	block := []float32{0.1, -0.2, 0.3, 0.6}
	e.ProcessBlock("main", block)
	want := []float32{0.2, -0.4, 0.6, 1.0} // last sample clamps
	for i := range block {
		assert.InDelta(t, want[i], block[i], 1e-6, "sample %d", i)
	}

	assert.Error(t, e.SetInputGain(5.0), "out-of-range gain accepted")
	assert.NoError(t, e.SetInputGain(1.0))
}

func TestEngineAutoGainRaisesQuietInput(t *testing.T) {
	cfg := testEngineConfig()
	cfg.AutoGain = true
	e, err := New(cfg, newRecordingTransport())
	require.NoError(t, err)
	defer e.Close()

	// Feed a sustained quiet signal; the AGC should push the level toward
	// its target rather than leave it untouched.
	block := make([]float32, 64)
	var last float32
	for n := 0; n < 200; n++ {
		for i := range block {
			block[i] = 0.05
		}
		e.ProcessBlock("main", block)
		last = block[0]
	}
	assert.Greater(t, last, float32(0.05), "auto gain did not amplify quiet input")
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.SampleRate = 0
	_, err := New(cfg, newRecordingTransport())
	assert.Error(t, err, "zero sample rate accepted")

	_, err = New(testEngineConfig(), nil)
	assert.Error(t, err, "nil transport accepted")
}
