package plugin

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/voicemesh/voicefx/dsp"
)

// ParameterSpec describes one parameter in a plugin's schema.
//
// Either Min/Max bound a continuous range, or Options enumerates the only
// legal values (in which case staged values snap to the nearest option).
type ParameterSpec struct {
	Min     float64
	Max     float64
	Default float64
	Options []float64
}

// Clamp returns value constrained to the spec: snapped to the nearest
// enumerated option when Options is set, otherwise clamped to [Min, Max].
func (s ParameterSpec) Clamp(value float64) float64 {
	if len(s.Options) > 0 {
		best := s.Options[0]
		bestDist := math.Abs(value - best)
		for _, opt := range s.Options[1:] {
			if d := math.Abs(value - opt); d < bestDist {
				best = opt
				bestDist = d
			}
		}
		return best
	}
	if value < s.Min {
		return s.Min
	}
	if value > s.Max {
		return s.Max
	}
	return value
}

// Definition is an immutable catalog entry for one effect plugin.
type Definition struct {
	Name     string
	Type     dsp.EffectType
	Category string
	Schema   map[string]ParameterSpec
}

// Defaults returns a fresh map of the schema's default parameter values.
func (d Definition) Defaults() map[string]float64 {
	defaults := make(map[string]float64, len(d.Schema))
	for name, spec := range d.Schema {
		defaults[name] = spec.Default
	}
	return defaults
}

var (
	catalogOnce sync.Once
	catalogByID map[dsp.EffectType]Definition
)

// Catalog returns the immutable plugin catalog, constructed once at first
// use. Callers must not mutate the returned definitions.
func Catalog() map[dsp.EffectType]Definition {
	catalogOnce.Do(buildCatalog)
	return catalogByID
}

// Lookup returns the catalog definition for the given effect type.
func Lookup(effectType dsp.EffectType) (Definition, bool) {
	catalogOnce.Do(buildCatalog)
	def, ok := catalogByID[effectType]
	return def, ok
}

func buildCatalog() {
	logrus.WithFields(logrus.Fields{
		"function": "buildCatalog",
	}).Info("Building plugin catalog")

	catalogByID = map[dsp.EffectType]Definition{
		dsp.EffectReverb: {
			Name:     "reverb",
			Type:     dsp.EffectReverb,
			Category: "ambience",
			Schema: map[string]ParameterSpec{
				"feedback": {Min: 0.0, Max: 0.98, Default: 0.7},
				"damping":  {Min: 0.0, Max: 1.0, Default: 0.4},
				"wetLevel": {Min: 0.0, Max: 1.0, Default: 0.3},
			},
		},
		dsp.EffectCompressor: {
			Name:     "compressor",
			Type:     dsp.EffectCompressor,
			Category: "dynamics",
			Schema: map[string]ParameterSpec{
				"threshold":  {Min: -60.0, Max: 0.0, Default: -20.0},
				"ratio":      {Min: 1.0, Max: 20.0, Default: 4.0},
				"attack":     {Min: 0.0001, Max: 1.0, Default: 0.005},
				"release":    {Min: 0.001, Max: 3.0, Default: 0.05},
				"makeupGain": {Min: 0.0, Max: 24.0, Default: 0.0},
			},
		},
		dsp.EffectEqualizer: {
			Name:     "equalizer",
			Type:     dsp.EffectEqualizer,
			Category: "tone",
			Schema: map[string]ParameterSpec{
				"lowFreq":   {Min: 20.0, Max: 500.0, Default: 120.0},
				"lowGain":   {Min: -18.0, Max: 18.0, Default: 0.0},
				"lowQ":      {Min: 0.1, Max: 10.0, Default: 0.707},
				"peak1Freq": {Min: 100.0, Max: 5000.0, Default: 800.0},
				"peak1Gain": {Min: -18.0, Max: 18.0, Default: 0.0},
				"peak1Q":    {Min: 0.1, Max: 10.0, Default: 1.0},
				"peak2Freq": {Min: 500.0, Max: 12000.0, Default: 3000.0},
				"peak2Gain": {Min: -18.0, Max: 18.0, Default: 0.0},
				"peak2Q":    {Min: 0.1, Max: 10.0, Default: 1.0},
				"highFreq":  {Min: 2000.0, Max: 20000.0, Default: 8000.0},
				"highGain":  {Min: -18.0, Max: 18.0, Default: 0.0},
				"highQ":     {Min: 0.1, Max: 10.0, Default: 0.707},
			},
		},
		dsp.EffectDelay: {
			Name:     "delay",
			Type:     dsp.EffectDelay,
			Category: "time",
			Schema: map[string]ParameterSpec{
				"delayTime": {Min: 1.0, Max: 2000.0, Default: 250.0},
				"feedback":  {Min: 0.0, Max: 0.95, Default: 0.35},
				"mix":       {Min: 0.0, Max: 1.0, Default: 0.5},
			},
		},
		dsp.EffectChorus: {
			Name:     "chorus",
			Type:     dsp.EffectChorus,
			Category: "modulation",
			Schema: map[string]ParameterSpec{
				"rate":   {Min: 0.01, Max: 10.0, Default: 0.8},
				"depth":  {Min: 0.0, Max: 10.0, Default: 3.0},
				"mix":    {Min: 0.0, Max: 1.0, Default: 0.5},
				"voices": {Default: 2, Options: []float64{1, 2, 3, 4}},
			},
		},
		dsp.EffectDistortion: {
			Name:     "distortion",
			Type:     dsp.EffectDistortion,
			Category: "drive",
			Schema: map[string]ParameterSpec{
				"drive": {Min: 1.0, Max: 20.0, Default: 4.0},
				"tone":  {Min: 200.0, Max: 16000.0, Default: 4000.0},
				"level": {Min: 0.0, Max: 1.0, Default: 0.8},
			},
		},
		dsp.EffectPitchShift: {
			Name:     "pitchshift",
			Type:     dsp.EffectPitchShift,
			Category: "pitch",
			Schema: map[string]ParameterSpec{
				"pitchRatio":    {Min: 0.5, Max: 2.0, Default: 1.0},
				"windowSize":    {Default: 512, Options: []float64{256, 512, 1024}},
				"overlapFactor": {Default: 4, Options: []float64{2, 4}},
			},
		},
		dsp.EffectVocoder: {
			Name:     "vocoder",
			Type:     dsp.EffectVocoder,
			Category: "voice",
			Schema: map[string]ParameterSpec{
				"bands":       {Default: 8, Options: []float64{4, 8, 12, 16}},
				"attack":      {Min: 0.0005, Max: 0.1, Default: 0.005},
				"release":     {Min: 0.001, Max: 0.5, Default: 0.02},
				"carrierFreq": {Min: 50.0, Max: 500.0, Default: 110.0},
			},
		},
	}

	logrus.WithFields(logrus.Fields{
		"function":     "buildCatalog",
		"plugin_count": len(catalogByID),
	}).Info("Plugin catalog built successfully")
}
