// Package plugin manages the lifecycle of effect plugin instances.
//
// It owns the immutable plugin catalog, the preset registry, and the
// Manager that creates and destroys instances, routes parameter and preset
// updates to the correct processing unit, and emits lifecycle notifications
// for the UI layer.
//
// Parameter writes never reach a processing unit mid-block: they are
// validated and clamped against the catalog schema, staged into a
// double-buffered slot on the instance, and applied atomically the next
// time the real-time callback enters a block for that unit.
package plugin
