package mixer

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nooploop/piejam-sub003/audio/fx"
	"github.com/nooploop/piejam-sub003/audio/midi"
	"github.com/nooploop/piejam-sub003/audio/param"
)

// MaxVolume is the upper bound of the linear channel volume.
const MaxVolume = 4

func (s *State) newChannel(name string, bus BusType) *Channel {
	ch := &Channel{
		ID:     ChannelID{uuid.New()},
		Name:   name,
		Bus:    bus,
		Volume: s.Params.Floats.Add(param.FloatRange(name+" volume", 1, 0, MaxVolume)),
		Pan:    s.Params.Floats.Add(param.FloatRange(name+" pan", 0, -1, 1)),
		Mute:   s.Params.Bools.Add(param.Toggle(name+" mute", false)),
		Solo:   s.Params.Bools.Add(param.Toggle(name+" solo", false)),
		Level:  s.Params.StereoLevels.Add(param.Descriptor[param.StereoLevel]{Name: name + " level"}),
		RMS:    s.Params.StereoLevels.Add(param.Descriptor[param.StereoLevel]{Name: name + " rms"}),
	}
	ch.SoloPath = s.Params.Bools.Add(param.Toggle(name+" solo path", false))

	s.Channels[ch.ID] = ch

	return ch
}

// Channel returns the channel id.
func (s *State) Channel(id ChannelID) (*Channel, error) {
	ch, ok := s.Channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, id)
	}

	return ch, nil
}

// Module returns the fx module id.
func (s *State) Module(id ModuleID) (*Module, error) {
	m, ok := s.Modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}

	return m, nil
}

// AddChannel appends a channel routed into main with no input.
func (s *State) AddChannel(name string, bus BusType) ChannelID {
	ch := s.newChannel(name, bus)
	ch.Out = ChannelRoute(s.Main)
	s.Order = append(s.Order, ch.ID)

	s.UpdateSoloActive()

	return ch.ID
}

// RemoveChannel deletes a channel with its fx modules and parameters.
// Routes pointing at it are cleared.
func (s *State) RemoveChannel(id ChannelID) error {
	if id == s.Main {
		return ErrMainChannel
	}

	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	for _, mid := range slices.Clone(ch.Fx) {
		if err := s.RemoveModule(mid); err != nil {
			return err
		}
	}

	for _, other := range s.Channels {
		if other.In.Kind == RouteChannel && other.In.Channel == id {
			other.In = NoRoute()
		}

		if other.Out.Kind == RouteChannel && other.Out.Channel == id {
			other.Out = NoRoute()
		}
	}

	s.MIDI.Unassign(midi.FloatTarget(ch.Volume))
	s.MIDI.Unassign(midi.FloatTarget(ch.Pan))
	s.MIDI.Unassign(midi.BoolTarget(ch.Mute))
	s.MIDI.Unassign(midi.BoolTarget(ch.Solo))

	s.Params.Floats.Remove(ch.Volume)
	s.Params.Floats.Remove(ch.Pan)
	s.Params.Bools.Remove(ch.Mute)
	s.Params.Bools.Remove(ch.Solo)
	s.Params.StereoLevels.Remove(ch.Level)
	s.Params.StereoLevels.Remove(ch.RMS)
	s.Params.Bools.Remove(ch.SoloPath)

	delete(s.Channels, id)
	s.Order = slices.DeleteFunc(s.Order, func(c ChannelID) bool { return c == id })

	s.UpdateSoloActive()

	return nil
}

// InsertModule adds a module of moduleType described by def to channel ch
// at position pos of its chain. pos is clamped to the chain length.
func (s *State) InsertModule(ch ChannelID, pos int, moduleType string, def fx.Definition) (ModuleID, error) {
	c, err := s.Channel(ch)
	if err != nil {
		return ModuleID{}, err
	}

	m := &Module{
		ID:           ModuleID{uuid.New()},
		Channel:      ch,
		Type:         moduleType,
		Name:         fmt.Sprintf("%s %s", c.Name, moduleType),
		StreamFrames: def.StreamFrames,
	}

	for _, spec := range def.Params {
		desc := spec.Descriptor()
		desc.Name = m.Name + " " + spec.Name
		m.Params = append(m.Params, s.Params.Floats.Add(desc))
	}

	if def.StreamFrames > 0 {
		m.Stream = StreamID{uuid.New()}
	}

	pos = min(max(pos, 0), len(c.Fx))
	c.Fx = slices.Insert(c.Fx, pos, m.ID)
	s.Modules[m.ID] = m

	return m.ID, nil
}

// RemoveModule deletes a module and its parameters.
func (s *State) RemoveModule(id ModuleID) error {
	m, err := s.Module(id)
	if err != nil {
		return err
	}

	if ch, ok := s.Channels[m.Channel]; ok {
		ch.Fx = slices.DeleteFunc(ch.Fx, func(x ModuleID) bool { return x == id })
	}

	for _, p := range m.Params {
		s.MIDI.Unassign(midi.FloatTarget(p))
		s.Params.Floats.Remove(p)
	}

	delete(s.Modules, id)

	return nil
}

// MoveModule moves a module to position pos of its chain.
func (s *State) MoveModule(id ModuleID, pos int) error {
	m, err := s.Module(id)
	if err != nil {
		return err
	}

	ch, err := s.Channel(m.Channel)
	if err != nil {
		return err
	}

	ch.Fx = slices.DeleteFunc(ch.Fx, func(x ModuleID) bool { return x == id })
	pos = min(max(pos, 0), len(ch.Fx))
	ch.Fx = slices.Insert(ch.Fx, pos, id)

	return nil
}

// SetBus changes the channel layout of channel id. Module parameters are
// kept; the modules are rebuilt for the new layout on the next rebuild.
func (s *State) SetBus(id ChannelID, bus BusType) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	if bus != Mono && bus != Stereo {
		return fmt.Errorf("%w: %d", ErrInvalidBus, bus)
	}

	ch.Bus = bus

	return nil
}

// SetInput routes the input of channel id.
func (s *State) SetInput(id ChannelID, r Route) error {
	return s.setRoute(id, r, func(ch *Channel) *Route { return &ch.In })
}

// SetOutput routes the output of channel id.
func (s *State) SetOutput(id ChannelID, r Route) error {
	return s.setRoute(id, r, func(ch *Channel) *Route { return &ch.Out })
}

func (s *State) setRoute(id ChannelID, r Route, field func(*Channel) *Route) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	switch r.Kind {
	case RouteNone:
	case RouteDevice:
		if r.Device < 0 {
			return fmt.Errorf("%w: device channel %d", ErrInvalidRoute, r.Device)
		}
	case RouteChannel:
		if _, err := s.Channel(r.Channel); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidRoute, r.Kind)
	}

	dst := field(ch)
	old := *dst
	*dst = r

	if s.hasCycle() {
		*dst = old
		return fmt.Errorf("%w: %s", ErrRoutingCycle, ch.Name)
	}

	s.UpdateSoloActive()

	return nil
}

// Feeds returns the channels whose output flows into channel id, through
// either end of a route.
func (s *State) Feeds(id ChannelID) []ChannelID {
	dst, ok := s.Channels[id]
	if !ok {
		return nil
	}

	var srcs []ChannelID

	for _, src := range s.ChannelsInOrder() {
		if src.ID != id && s.feeds(src, dst) {
			srcs = append(srcs, src.ID)
		}
	}

	return srcs
}

func (s *State) feeds(src, dst *Channel) bool {
	return (src.Out.Kind == RouteChannel && src.Out.Channel == dst.ID) ||
		(dst.In.Kind == RouteChannel && dst.In.Channel == src.ID)
}

func (s *State) hasCycle() bool {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[ChannelID]int, len(s.Channels))

	var visit func(ch *Channel) bool

	visit = func(ch *Channel) bool {
		switch state[ch.ID] {
		case visiting:
			return true
		case done:
			return false
		}

		state[ch.ID] = visiting

		for _, next := range s.Channels {
			if s.feeds(ch, next) && visit(next) {
				return true
			}
		}

		state[ch.ID] = done

		return false
	}

	for _, ch := range s.Channels {
		if visit(ch) {
			return true
		}
	}

	return false
}

// ChannelsInOrder returns main followed by the other channels in display
// order.
func (s *State) ChannelsInOrder() []*Channel {
	out := make([]*Channel, 0, len(s.Channels))
	out = append(out, s.Channels[s.Main])

	for _, id := range s.Order {
		out = append(out, s.Channels[id])
	}

	return out
}

// SetVolume sets the linear volume of a channel.
func (s *State) SetVolume(id ChannelID, v float64) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	return s.Params.Floats.Set(ch.Volume, v)
}

// SetPan sets the pan (mono) or balance (stereo) position of a channel.
func (s *State) SetPan(id ChannelID, v float64) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	return s.Params.Floats.Set(ch.Pan, v)
}

// SetMute mutes or unmutes a channel.
func (s *State) SetMute(id ChannelID, on bool) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	return s.Params.Bools.Set(ch.Mute, on)
}

// SetSolo solos or unsolos a channel and updates SoloActive.
func (s *State) SetSolo(id ChannelID, on bool) error {
	ch, err := s.Channel(id)
	if err != nil {
		return err
	}

	if err := s.Params.Bools.Set(ch.Solo, on); err != nil {
		return err
	}

	s.UpdateSoloActive()

	return nil
}

// UpdateSoloActive recomputes SoloActive and the SoloPath of every
// channel from the solo parameters and the routing. Call it after solo
// parameters were changed behind the actions, e.g. by MIDI.
func (s *State) UpdateSoloActive() {
	var soloed []*Channel

	for _, ch := range s.Channels {
		if on, err := s.Params.Bools.Get(ch.Solo); err == nil && on {
			soloed = append(soloed, ch)
		}
	}

	onPath := make(map[ChannelID]bool, len(s.Channels))

	for _, ch := range soloed {
		s.walk(ch, onPath, func(a, b *Channel) bool { return s.feeds(a, b) })
		s.walk(ch, onPath, func(a, b *Channel) bool { return s.feeds(b, a) })
	}

	for id, ch := range s.Channels {
		setIfChanged(s.Params.Bools, ch.SoloPath, onPath[id])
	}

	setIfChanged(s.Params.Bools, s.SoloActive, len(soloed) > 0)
}

// walk marks every channel reachable from ch along next.
func (s *State) walk(ch *Channel, seen map[ChannelID]bool, next func(a, b *Channel) bool) {
	seen[ch.ID] = true

	for _, other := range s.Channels {
		if other.ID != ch.ID && next(ch, other) {
			s.walk(other, seen, next)
		}
	}
}

func setIfChanged[T comparable](m *param.Map[T], id param.ID[T], v T) {
	if cur, err := m.Get(id); err == nil && cur != v {
		_ = m.Set(id, v)
	}
}

// Assign makes src drive t. An existing assignment of src is replaced.
func (s *State) Assign(src midi.Source, t midi.Target) {
	s.MIDI.Unassign(t)
	s.MIDI[src] = t
}
