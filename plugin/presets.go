package plugin

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// presetTable maps plugin name -> preset name -> parameter values.
type presetTable map[string]map[string]map[string]float64

// PresetStore holds named parameter sets per plugin.
//
// The store keeps its presets in an immutable snapshot; saving a preset
// publishes a new snapshot rather than mutating shared state, so readers
// (including the control path feeding the real-time callback) never race
// with writers.
type PresetStore struct {
	snapshot atomic.Pointer[presetTable]
}

// NewPresetStore creates a store seeded with the built-in presets.
func NewPresetStore() *PresetStore {
	logrus.WithFields(logrus.Fields{
		"function": "NewPresetStore",
	}).Info("Creating preset store with built-in presets")

	s := &PresetStore{}
	seed := builtinPresets()
	s.snapshot.Store(&seed)
	return s
}

// Lookup returns a copy of the named preset for the given plugin.
func (s *PresetStore) Lookup(pluginName, presetName string) (map[string]float64, error) {
	table := *s.snapshot.Load()
	presets, ok := table[pluginName]
	if !ok {
		return nil, fmt.Errorf("%w: plugin %q", ErrPresetNotFound, pluginName)
	}
	values, ok := presets[presetName]
	if !ok {
		return nil, fmt.Errorf("%w: %q for plugin %q", ErrPresetNotFound, presetName, pluginName)
	}

	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// Save stores a preset under the plugin and preset name, replacing any
// existing preset of the same name. The store's current snapshot is copied
// and the new snapshot is published atomically.
func (s *PresetStore) Save(pluginName, presetName string, values map[string]float64) {
	logrus.WithFields(logrus.Fields{
		"function":    "PresetStore.Save",
		"plugin_name": pluginName,
		"preset_name": presetName,
		"value_count": len(values),
	}).Info("Saving preset snapshot")

	old := *s.snapshot.Load()
	next := make(presetTable, len(old)+1)
	for plugin, presets := range old {
		copied := make(map[string]map[string]float64, len(presets))
		for name, vals := range presets {
			copied[name] = vals
		}
		next[plugin] = copied
	}

	stored := make(map[string]float64, len(values))
	for k, v := range values {
		stored[k] = v
	}
	if next[pluginName] == nil {
		next[pluginName] = make(map[string]map[string]float64, 1)
	}
	next[pluginName][presetName] = stored

	s.snapshot.Store(&next)
}

// Names returns the preset names available for a plugin.
func (s *PresetStore) Names(pluginName string) []string {
	table := *s.snapshot.Load()
	presets := table[pluginName]
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// builtinPresets returns the factory preset table.
func builtinPresets() presetTable {
	return presetTable{
		"reverb": {
			"smallRoom": {"feedback": 0.55, "damping": 0.6, "wetLevel": 0.25},
			"hall":      {"feedback": 0.85, "damping": 0.3, "wetLevel": 0.4},
		},
		"compressor": {
			"voice":  {"threshold": -18.0, "ratio": 3.0, "attack": 0.01, "release": 0.12, "makeupGain": 4.0},
			"limiter": {"threshold": -6.0, "ratio": 20.0, "attack": 0.0005, "release": 0.05, "makeupGain": 0.0},
		},
		"equalizer": {
			"presence": {"peak2Freq": 3500.0, "peak2Gain": 4.0, "peak2Q": 1.2, "highFreq": 10000.0, "highGain": 2.0},
			"warmth":   {"lowFreq": 150.0, "lowGain": 3.0, "peak1Freq": 600.0, "peak1Gain": 1.5},
		},
		"delay": {
			"slapback": {"delayTime": 90.0, "feedback": 0.1, "mix": 0.3},
			"echo":     {"delayTime": 400.0, "feedback": 0.5, "mix": 0.4},
		},
		"chorus": {
			"subtle": {"rate": 0.5, "depth": 1.5, "mix": 0.3, "voices": 2},
			"lush":   {"rate": 0.8, "depth": 5.0, "mix": 0.5, "voices": 4},
		},
		"distortion": {
			"crunch": {"drive": 6.0, "tone": 3000.0, "level": 0.7},
		},
		"pitchshift": {
			"octaveUp":   {"pitchRatio": 2.0},
			"octaveDown": {"pitchRatio": 0.5},
		},
		"vocoder": {
			"robot": {"bands": 8, "attack": 0.005, "release": 0.02, "carrierFreq": 110.0},
		},
	}
}
