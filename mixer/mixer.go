// Package mixer holds the application state the engine builder reads:
// channels, their effect chains and routing, and the parameters they own.
//
// State is owned by the control thread. The engine never keeps references
// into it beyond parameter slots resolved during a rebuild.
package mixer

import (
	"errors"

	"github.com/google/uuid"

	"github.com/nooploop/piejam-sub003/audio/midi"
	"github.com/nooploop/piejam-sub003/audio/param"
)

var (
	// ErrUnknownChannel is returned for an ID that names no channel.
	ErrUnknownChannel = errors.New("mixer: unknown channel")
	// ErrUnknownModule is returned for an ID that names no fx module.
	ErrUnknownModule = errors.New("mixer: unknown module")
	// ErrMainChannel is returned when an action is not allowed on the main
	// channel.
	ErrMainChannel = errors.New("mixer: not allowed on main channel")
	// ErrRoutingCycle is returned when a route would feed a channel back
	// into itself.
	ErrRoutingCycle = errors.New("mixer: routing cycle")
	// ErrInvalidRoute is returned for a malformed route.
	ErrInvalidRoute = errors.New("mixer: invalid route")
	// ErrInvalidBus is returned for an unknown bus type.
	ErrInvalidBus = errors.New("mixer: invalid bus type")
)

// ChannelID identifies a mixer channel.
type ChannelID struct{ uuid.UUID }

// ModuleID identifies an fx module.
type ModuleID struct{ uuid.UUID }

// StreamID identifies a stream buffer published to the GUI.
type StreamID struct{ uuid.UUID }

// Valid reports whether id was issued.
func (id ChannelID) Valid() bool { return id.UUID != uuid.Nil }

// Valid reports whether id was issued.
func (id ModuleID) Valid() bool { return id.UUID != uuid.Nil }

// Valid reports whether id was issued.
func (id StreamID) Valid() bool { return id.UUID != uuid.Nil }

// BusType is the channel layout of a mixer channel.
type BusType uint8

const (
	Mono BusType = iota
	Stereo
)

// Channels returns the number of audio channels of the bus.
func (b BusType) Channels() int {
	if b == Stereo {
		return 2
	}

	return 1
}

func (b BusType) String() string {
	if b == Stereo {
		return "stereo"
	}

	return "mono"
}

// RouteKind selects what a route points at.
type RouteKind uint8

const (
	RouteNone RouteKind = iota
	// RouteDevice addresses device channels starting at Route.Device.
	RouteDevice
	// RouteChannel addresses another mixer channel.
	RouteChannel
)

// Route is the input or output connection of a channel.
type Route struct {
	Kind    RouteKind
	Device  int
	Channel ChannelID
}

// NoRoute leaves a channel end unconnected.
func NoRoute() Route { return Route{} }

// DeviceRoute addresses device channels starting at first.
func DeviceRoute(first int) Route { return Route{Kind: RouteDevice, Device: first} }

// ChannelRoute addresses mixer channel id.
func ChannelRoute(id ChannelID) Route { return Route{Kind: RouteChannel, Channel: id} }

// Channel is a mixer channel. Its parameters live in State.Params.
type Channel struct {
	ID   ChannelID
	Name string
	Bus  BusType

	// In selects the source of the channel: device capture channels or the
	// output of another channel.
	In Route
	// Out selects where the channel output is mixed: another channel,
	// usually main, or device playback channels.
	Out Route

	Volume param.FloatID
	Pan    param.FloatID
	Mute   param.BoolID
	Solo   param.BoolID
	// Level is the post-fader peak level, RMS the post-fader RMS level.
	Level param.StereoLevelID
	RMS   param.StereoLevelID

	// SoloPath is maintained by the state: it is set while the channel is
	// soloed or sits upstream or downstream of a soloed channel. Strips
	// gate on it rather than on Solo so a soloed signal stays audible all
	// the way to the device.
	SoloPath param.BoolID

	// Fx lists the effect chain in processing order.
	Fx []ModuleID
}

// Module is an fx module inserted into a channel.
type Module struct {
	ID      ModuleID
	Channel ChannelID
	Type    string
	Name    string
	// Params holds one parameter per parameter spec of the module type.
	Params []param.FloatID
	// Stream is set for module types that tap audio for the GUI.
	Stream       StreamID
	StreamFrames int
}

// State is the mixer configuration and the owner of every parameter.
type State struct {
	Params *param.Store

	Channels map[ChannelID]*Channel
	// Order is the display order of the channels other than main.
	Order   []ChannelID
	Main    ChannelID
	Modules map[ModuleID]*Module

	// SoloActive is set while any channel is soloed.
	SoloActive param.BoolID

	MIDI midi.Assignments
}

// NewState returns a state with a stereo main channel routed to the first
// two device playback channels.
func NewState() *State {
	s := &State{
		Params:   param.NewStore(),
		Channels: make(map[ChannelID]*Channel),
		Modules:  make(map[ModuleID]*Module),
		MIDI:     make(midi.Assignments),
	}

	s.SoloActive = s.Params.Bools.Add(param.Toggle("solo active", false))

	main := s.newChannel("main", Stereo)
	main.Out = DeviceRoute(0)
	s.Main = main.ID

	return s
}
