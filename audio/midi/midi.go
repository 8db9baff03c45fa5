// Package midi feeds MIDI controller input into the audio graph as
// parameter events and reports learned assignments back to the control
// thread.
package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/nooploop/piejam-sub003/audio/param"
)

// DeviceID identifies a MIDI input device.
type DeviceID int

// Kind distinguishes the supported channel messages.
type Kind uint8

const (
	ControlChange Kind = iota
	ProgramChange
)

func (k Kind) String() string {
	switch k {
	case ControlChange:
		return "cc"
	case ProgramChange:
		return "pc"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Source identifies one controller: a CC number or the program change of
// a channel on a device.
type Source struct {
	Device     DeviceID
	Channel    uint8
	Kind       Kind
	Controller uint8
}

func (s Source) String() string {
	if s.Kind == ProgramChange {
		return fmt.Sprintf("dev %d ch %d pc", s.Device, s.Channel+1)
	}

	return fmt.Sprintf("dev %d ch %d cc %d", s.Device, s.Channel+1, s.Controller)
}

// Event is a decoded control message.
type Event struct {
	Source Source
	Value  uint8
}

// Normalized maps the 7-bit value onto [0, 1].
func (e Event) Normalized() float64 {
	return float64(e.Value) / 127
}

// Decode parses a raw MIDI message. It reports false for messages other
// than control and program changes.
func Decode(dev DeviceID, raw []byte) (Event, bool) {
	msg := midi.Message(raw)

	var channel, controller, value uint8

	switch {
	case msg.GetControlChange(&channel, &controller, &value):
		return Event{
			Source: Source{Device: dev, Channel: channel, Kind: ControlChange, Controller: controller},
			Value:  value,
		}, true
	case msg.GetProgramChange(&channel, &value):
		return Event{Source: Source{Device: dev, Channel: channel, Kind: ProgramChange}, Value: value}, true
	default:
		return Event{}, false
	}
}

// Target names the parameter a controller drives. Exactly one ID is valid.
type Target struct {
	Float param.FloatID
	Int   param.IntID
	Bool  param.BoolID
}

// FloatTarget returns a target for a float parameter.
func FloatTarget(id param.FloatID) Target { return Target{Float: id} }

// IntTarget returns a target for an int parameter.
func IntTarget(id param.IntID) Target { return Target{Int: id} }

// BoolTarget returns a target for a bool parameter.
func BoolTarget(id param.BoolID) Target { return Target{Bool: id} }

// Valid reports whether t names a parameter.
func (t Target) Valid() bool {
	return t.Float.Valid() || t.Int.Valid() || t.Bool.Valid()
}

// Assignments maps controllers to parameters. It is part of the
// application state and read by the engine builder.
type Assignments map[Source]Target

// Unassign removes every assignment driving t.
func (a Assignments) Unassign(t Target) {
	for src, target := range a {
		if target == t {
			delete(a, src)
		}
	}
}
