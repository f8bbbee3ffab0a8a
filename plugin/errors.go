package plugin

import "errors"

// Sentinel errors for plugin package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrInstanceNotFound indicates the instance id is not known.
	ErrInstanceNotFound = errors.New("plugin instance not found")

	// ErrParameterOutOfRange indicates a parameter name is not in the
	// schema or the value is not a usable number. Finite values inside a
	// known parameter's range are clamped rather than rejected.
	ErrParameterOutOfRange = errors.New("parameter out of range")

	// ErrPresetNotFound indicates no preset with that name exists for the
	// instance's plugin.
	ErrPresetNotFound = errors.New("preset not found")
)
