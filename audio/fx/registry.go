// Package fx provides the effect modules that can be inserted into a mixer
// channel, built from a registry of per-type factories.
package fx

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/stream"
)

var (
	// ErrUnknownModule is returned for a module type without a definition.
	ErrUnknownModule = errors.New("fx: unknown module type")
	// ErrParamMismatch is returned when the supplied parameters do not match
	// the definition of the module type.
	ErrParamMismatch = errors.New("fx: parameter mismatch")

	errDuplicateModule = errors.New("duplicate module type")
)

// ParamSpec describes one float parameter of a module type.
type ParamSpec struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
}

// Descriptor returns the parameter descriptor for s.
func (s ParamSpec) Descriptor() param.Descriptor[float64] {
	return param.FloatRange(s.Name, s.Default, s.Min, s.Max)
}

// BuildContext carries everything a module needs to build its subgraph.
type BuildContext struct {
	Name          string
	SampleRate    float64
	Channels      int
	MaxBufferSize int
	// Params holds one slot per ParamSpec of the definition, in order.
	Params []*param.Slot[float64]
	// Stream is set for module types with StreamFrames > 0.
	Stream *stream.Stream
}

// Builder creates the component of one module instance.
type Builder func(bc BuildContext) (component.Component, error)

// Definition describes a module type.
type Definition struct {
	Params []ParamSpec
	// StreamFrames is the capacity of the stream the module taps audio
	// into, or 0 if it does not stream.
	StreamFrames int
	Build        Builder
}

// Registry maps module type names to their definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition for the given module type.
func (r *Registry) Register(moduleType string, def Definition) error {
	if moduleType == "" {
		return errors.New("empty module type")
	}

	if def.Build == nil {
		return errors.New("nil builder")
	}

	if _, exists := r.defs[moduleType]; exists {
		return fmt.Errorf("%w: %s", errDuplicateModule, moduleType)
	}

	r.defs[moduleType] = def

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(moduleType string, def Definition) {
	err := r.Register(moduleType, def)
	if err != nil {
		panic("fx registry: " + err.Error())
	}
}

// Lookup returns the definition of moduleType.
func (r *Registry) Lookup(moduleType string) (Definition, bool) {
	def, ok := r.defs[moduleType]
	return def, ok
}

// Types returns all registered module types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Build creates the component of a module of type moduleType.
func (r *Registry) Build(moduleType string, bc BuildContext) (component.Component, error) {
	def, ok := r.defs[moduleType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, moduleType)
	}

	if len(bc.Params) != len(def.Params) {
		return nil, fmt.Errorf("%w: %s wants %d parameters, got %d",
			ErrParamMismatch, moduleType, len(def.Params), len(bc.Params))
	}

	if def.StreamFrames > 0 && bc.Stream == nil {
		return nil, fmt.Errorf("fx: build %s: missing stream", moduleType)
	}

	c, err := def.Build(bc)
	if err != nil {
		return nil, fmt.Errorf("fx: build %s: %w", moduleType, err)
	}

	return c, nil
}
