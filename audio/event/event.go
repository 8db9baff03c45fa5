// Package event implements the control events exchanged between processors
// within one processing block.
//
// An event is a value change at a frame offset inside the block. Events for
// one port are kept in offset order in a Buffer whose storage is carved from
// a per-block Arena, so the audio thread never touches the heap while
// producing them.
package event

import "fmt"

// Kind identifies the value type carried by an event port.
type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the closed set of control value types.
type Value interface {
	float64 | int | bool
}

// Event is a value change at Offset frames into the current block.
type Event[T Value] struct {
	Offset int
	Value  T
}

// Port describes one event input or output of a processor.
type Port struct {
	Name string
	Kind Kind
}

// FloatPort returns a float event port descriptor.
func FloatPort(name string) Port { return Port{Name: name, Kind: KindFloat} }

// IntPort returns an int event port descriptor.
func IntPort(name string) Port { return Port{Name: name, Kind: KindInt} }

// BoolPort returns a bool event port descriptor.
func BoolPort(name string) Port { return Port{Name: name, Kind: KindBool} }
