package plugin

import (
	"sync"
	"sync/atomic"

	"github.com/voicemesh/voicefx/dsp"
)

// Instance represents one active effect insertion in a channel's signal
// path.
//
// Each instance exclusively owns one dsp.Unit for its lifetime; destroying
// the instance releases the unit and its internal state. The effect type
// never changes after creation.
//
// Control-plane writes (parameters, bypass) are staged and only picked up
// by the audio callback at a block boundary through ApplyStaged, which is
// the sole cross-thread interaction on the hot path.
type Instance struct {
	id           uint32
	effectType   dsp.EffectType
	ownerChannel string
	unit         *dsp.Unit

	mu     sync.RWMutex
	params map[string]float64 // control-plane view of current values

	staged   atomic.Pointer[map[string]float64]
	bypassed atomic.Bool
}

// ID returns the instance identifier.
func (i *Instance) ID() uint32 {
	return i.id
}

// Type returns the effect type the instance was created with.
func (i *Instance) Type() dsp.EffectType {
	return i.effectType
}

// OwnerChannel returns the channel this instance is inserted into.
func (i *Instance) OwnerChannel() string {
	return i.ownerChannel
}

// Unit returns the processing unit owned by this instance. Only the audio
// callback may invoke Process on it.
func (i *Instance) Unit() *dsp.Unit {
	return i.unit
}

// Parameters returns a copy of the current parameter values.
func (i *Instance) Parameters() map[string]float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make(map[string]float64, len(i.params))
	for k, v := range i.params {
		out[k] = v
	}
	return out
}

// Parameter returns the current value of one parameter.
func (i *Instance) Parameter(name string) (float64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.params[name]
	return v, ok
}

// SetBypassed stages a bypass state change; the audio callback observes it
// at the next block boundary.
func (i *Instance) SetBypassed(bypassed bool) {
	i.bypassed.Store(bypassed)
}

// Bypassed reports the staged bypass state.
func (i *Instance) Bypassed() bool {
	return i.bypassed.Load()
}

// stageParameter records the new value and publishes a merged pending
// snapshot for the audio callback to pick up.
func (i *Instance) stageParameter(name string, value float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.params[name] = value

	pending := make(map[string]float64)
	if old := i.staged.Load(); old != nil {
		for k, v := range *old {
			pending[k] = v
		}
	}
	pending[name] = value
	i.staged.Store(&pending)
}

// ApplyStaged installs any pending parameter writes and the bypass state on
// the processing unit. It must be called only by the owner of the real-time
// callback, at block entry; it never blocks and performs no allocation when
// nothing is pending.
func (i *Instance) ApplyStaged() {
	if pending := i.staged.Swap(nil); pending != nil {
		i.unit.Apply(*pending)
	}
	i.unit.SetBypassed(i.bypassed.Load())
}
