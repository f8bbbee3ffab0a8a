package plugin

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
)

// StreamControl is the narrow contract the manager uses to keep the
// streaming pipeline in sync with instance lifecycle and parameter changes.
// Both operations must be safe to call for instances that are not
// streaming.
type StreamControl interface {
	// StopByInstance stops any active stream sourced from the instance.
	// It is idempotent.
	StopByInstance(instanceID uint32)

	// BroadcastParameter forwards a committed parameter change to the
	// stream targets of the instance, if it is currently streaming.
	BroadcastParameter(instanceID uint32, name string, value float64)
}

// Manager creates and destroys plugin instances, binds them into channel
// signal paths, and routes parameter and preset updates to the correct
// processing unit.
type Manager struct {
	sampleRate float64

	mu        sync.RWMutex
	instances map[uint32]*Instance
	nextID    uint32
	presets   *PresetStore
	streams   StreamControl

	// chains is an immutable per-channel snapshot rebuilt on every
	// create/remove so the real-time callback can walk a channel's
	// signal path without taking a lock.
	chains atomic.Pointer[map[string][]*Instance]

	onCreated          func(*Instance)
	onParameterChanged func(instanceID uint32, name string, value float64)
	onRemoved          func(instanceID uint32)
}

// NewManager creates a plugin instance manager for the given sample rate.
func NewManager(sampleRate float64) (*Manager, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewManager",
		"sample_rate": sampleRate,
	}).Info("Creating plugin instance manager")

	if sampleRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewManager",
			"sample_rate": sampleRate,
			"error":       "sample rate must be positive",
		}).Error("Manager validation failed")
		return nil, fmt.Errorf("%w: %f", dsp.ErrInvalidSampleRate, sampleRate)
	}

	m := &Manager{
		sampleRate: sampleRate,
		instances:  make(map[uint32]*Instance),
		presets:    NewPresetStore(),
	}
	empty := make(map[string][]*Instance)
	m.chains.Store(&empty)

	logrus.WithFields(logrus.Fields{
		"function":    "NewManager",
		"sample_rate": sampleRate,
	}).Info("Plugin instance manager created successfully")

	return m, nil
}

// SetStreamControl wires the streaming pipeline into the manager. Must be
// called before instances start streaming; a nil control disables stream
// coupling.
func (m *Manager) SetStreamControl(streams StreamControl) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = streams
}

// OnInstanceCreated registers the callback invoked after an instance is
// created.
func (m *Manager) OnInstanceCreated(cb func(*Instance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = cb
}

// OnParameterChanged registers the callback invoked after a parameter
// change is committed.
func (m *Manager) OnParameterChanged(cb func(instanceID uint32, name string, value float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onParameterChanged = cb
}

// OnInstanceRemoved registers the callback invoked after an instance is
// removed.
func (m *Manager) OnInstanceRemoved(cb func(instanceID uint32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = cb
}

// Presets returns the manager's preset store.
func (m *Manager) Presets() *PresetStore {
	return m.presets
}

// CreateInstance instantiates an effect of the given type and appends it to
// the owner channel's signal path.
//
// Initial parameter values are clamped against the schema and installed
// before the instance becomes visible to the audio callback; nil is
// accepted for defaults only.
//
// Returns:
//   - *Instance: The created instance
//   - error: dsp.ErrUnknownEffectType if the type is not in the catalog
func (m *Manager) CreateInstance(effectType dsp.EffectType, ownerChannel string, initial map[string]float64) (*Instance, error) {
	logrus.WithFields(logrus.Fields{
		"function":      "Manager.CreateInstance",
		"effect_type":   effectType.String(),
		"owner_channel": ownerChannel,
	}).Info("Creating plugin instance")

	def, ok := Lookup(effectType)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":    "Manager.CreateInstance",
			"effect_type": uint32(effectType),
			"error":       "effect type not in catalog",
		}).Error("Instance creation failed")
		return nil, fmt.Errorf("%w: %d", dsp.ErrUnknownEffectType, uint32(effectType))
	}

	unit, err := dsp.NewUnit(effectType, m.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("creating processing unit: %w", err)
	}

	params := def.Defaults()
	for name, value := range initial {
		spec, ok := def.Schema[name]
		if !ok {
			continue
		}
		params[name] = spec.Clamp(value)
	}
	for name, value := range params {
		unit.SetParameter(name, value)
	}

	m.mu.Lock()
	m.nextID++
	inst := &Instance{
		id:           m.nextID,
		effectType:   effectType,
		ownerChannel: ownerChannel,
		unit:         unit,
		params:       params,
	}
	m.instances[inst.id] = inst
	m.rebuildChainsLocked()
	created := m.onCreated
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "Manager.CreateInstance",
		"instance_id":   inst.id,
		"effect_type":   effectType.String(),
		"owner_channel": ownerChannel,
	}).Info("Plugin instance created successfully")

	if created != nil {
		created(inst)
	}
	return inst, nil
}

// SetParameter clamps the value to the schema range, stages it for the next
// block boundary of the instance's unit, and notifies observers. If the
// instance is streaming, the change is also queued for broadcast to its
// stream targets so remote listeners stay in sync.
func (m *Manager) SetParameter(instanceID uint32, name string, value float64) error {
	logrus.WithFields(logrus.Fields{
		"function":    "Manager.SetParameter",
		"instance_id": instanceID,
		"parameter":   name,
		"value":       value,
	}).Debug("Setting plugin parameter")

	m.mu.RLock()
	inst, ok := m.instances[instanceID]
	changed := m.onParameterChanged
	streams := m.streams
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}

	def, _ := Lookup(inst.effectType)
	spec, ok := def.Schema[name]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":    "Manager.SetParameter",
			"instance_id": instanceID,
			"parameter":   name,
			"error":       "parameter not in schema",
		}).Warn("Parameter update rejected")
		return fmt.Errorf("%w: %q is not a parameter of %s", ErrParameterOutOfRange, name, def.Name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %q value is not finite", ErrParameterOutOfRange, name)
	}

	clamped := spec.Clamp(value)
	inst.stageParameter(name, clamped)

	if changed != nil {
		changed(instanceID, name, clamped)
	}
	if streams != nil {
		streams.BroadcastParameter(instanceID, name, clamped)
	}
	return nil
}

// ApplyPreset looks up a saved parameter set by the instance's plugin name
// and applies each value through SetParameter, so preset application
// inherits the same clamping, atomicity and broadcast behavior.
func (m *Manager) ApplyPreset(instanceID uint32, presetName string) error {
	logrus.WithFields(logrus.Fields{
		"function":    "Manager.ApplyPreset",
		"instance_id": instanceID,
		"preset_name": presetName,
	}).Info("Applying preset to plugin instance")

	m.mu.RLock()
	inst, ok := m.instances[instanceID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}

	def, _ := Lookup(inst.effectType)
	values, err := m.presets.Lookup(def.Name, presetName)
	if err != nil {
		return err
	}

	// Deterministic application order keeps notification sequences stable.
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := m.SetParameter(instanceID, name, values[name]); err != nil {
			return fmt.Errorf("applying preset %q: %w", presetName, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":        "Manager.ApplyPreset",
		"instance_id":     instanceID,
		"preset_name":     presetName,
		"parameter_count": len(names),
	}).Info("Preset applied successfully")

	return nil
}

// SavePreset captures the instance's current parameter values as a named
// preset for its plugin, publishing a new preset table snapshot.
func (m *Manager) SavePreset(instanceID uint32, presetName string) error {
	m.mu.RLock()
	inst, ok := m.instances[instanceID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}

	def, _ := Lookup(inst.effectType)
	m.presets.Save(def.Name, presetName, inst.Parameters())
	return nil
}

// RemoveInstance stops any active stream for the instance, disconnects it
// from its channel's signal path, and releases the owned processing unit.
func (m *Manager) RemoveInstance(instanceID uint32) error {
	logrus.WithFields(logrus.Fields{
		"function":    "Manager.RemoveInstance",
		"instance_id": instanceID,
	}).Info("Removing plugin instance")

	m.mu.RLock()
	_, ok := m.instances[instanceID]
	streams := m.streams
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}

	// Stream teardown happens before the instance disappears so the
	// pipeline can still resolve it; StopByInstance is idempotent.
	if streams != nil {
		streams.StopByInstance(instanceID)
	}

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}
	delete(m.instances, instanceID)
	m.rebuildChainsLocked()
	removed := m.onRemoved
	m.mu.Unlock()

	// Dropping the last reference releases the unit's internal state.
	inst.unit.Reset()

	logrus.WithFields(logrus.Fields{
		"function":      "Manager.RemoveInstance",
		"instance_id":   instanceID,
		"owner_channel": inst.ownerChannel,
	}).Info("Plugin instance removed successfully")

	if removed != nil {
		removed(instanceID)
	}
	return nil
}

// Instance returns the instance with the given id.
func (m *Manager) Instance(instanceID uint32) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}
	return inst, nil
}

// InstanceCount returns the number of active instances.
func (m *Manager) InstanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// ChannelChain returns the ordered signal path for a channel. The returned
// slice is an immutable snapshot; the audio callback may iterate it without
// locking.
func (m *Manager) ChannelChain(channel string) []*Instance {
	return (*m.chains.Load())[channel]
}

// rebuildChainsLocked publishes a fresh per-channel chain snapshot.
// Instances are ordered by creation so the signal path is stable.
func (m *Manager) rebuildChainsLocked() {
	chains := make(map[string][]*Instance)
	ids := make([]uint32, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for _, id := range ids {
		inst := m.instances[id]
		chains[inst.ownerChannel] = append(chains[inst.ownerChannel], inst)
	}
	m.chains.Store(&chains)
}
