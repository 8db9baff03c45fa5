package midi

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	ev, ok := Decode(3, midi.ControlChange(1, 7, 100))
	if !ok {
		t.Fatal("control change not decoded")
	}

	want := Source{Device: 3, Channel: 1, Kind: ControlChange, Controller: 7}
	if ev.Source != want || ev.Value != 100 {
		t.Errorf("Decode = %+v, want source %+v value 100", ev, want)
	}

	ev, ok = Decode(0, midi.ProgramChange(2, 5))
	if !ok || ev.Source.Kind != ProgramChange || ev.Value != 5 || ev.Source.Channel != 2 {
		t.Errorf("program change decoded as %+v, %v", ev, ok)
	}

	if _, ok := Decode(0, midi.NoteOn(0, 60, 100)); ok {
		t.Error("note on must be ignored")
	}
}

func TestAssignmentsUnassign(t *testing.T) {
	t.Parallel()

	store := param.NewStore()
	vol := FloatTarget(store.Floats.Add(param.FloatRange("volume", 1, 0, 2)))
	mute := BoolTarget(store.Bools.Add(param.Toggle("mute", false)))

	a := Assignments{
		{Controller: 1}: vol,
		{Controller: 2}: vol,
		{Controller: 3}: mute,
	}

	a.Unassign(vol)

	if len(a) != 1 || a[Source{Controller: 3}] != mute {
		t.Errorf("after Unassign: %v", a)
	}
}

type fixture struct {
	store *param.Store
	input *Input
	proc  *Processor
	ctx   *processor.Context
	arena *event.Arena

	volume param.FloatID
	mode   param.IntID
	mute   param.BoolID
}

func newFixture(t *testing.T, queueSize int) *fixture {
	t.Helper()

	f := &fixture{store: param.NewStore(), input: NewInput(queueSize), arena: event.NewArena(event.DefaultArenaSize)}
	f.volume = f.store.Floats.Add(param.FloatRange("volume", 1, 0, 2))
	f.mode = f.store.Ints.Add(param.IntRange("mode", 0, 0, 4))
	f.mute = f.store.Bools.Add(param.Toggle("mute", false))

	vol, _ := f.store.Floats.Slot(f.volume)
	mode, _ := f.store.Ints.Slot(f.mode)
	mute, _ := f.store.Bools.Slot(f.mute)

	f.proc = NewProcessor(f.input, []Binding{
		{Source: Source{Controller: 7, Kind: ControlChange}, Target: FloatTarget(f.volume), Float: vol},
		{Source: Source{Kind: ProgramChange}, Target: IntTarget(f.mode), Int: mode},
		{Source: Source{Controller: 64, Kind: ControlChange}, Target: BoolTarget(f.mute), Bool: mute},
	})

	f.ctx = &processor.Context{BufferSize: 16}
	for _, port := range f.proc.EventOutputs() {
		f.ctx.EventOutputs = append(f.ctx.EventOutputs, event.NewSlot(port.Kind))
	}

	return f
}

func (f *fixture) run() {
	f.arena.Reset()

	for _, s := range f.ctx.EventOutputs {
		s.Reset(f.arena, f.ctx.BufferSize)
	}

	f.proc.Process(f.ctx)
}

func TestProcessorPorts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8)
	ports := f.proc.EventOutputs()

	kinds := []event.Kind{event.KindFloat, event.KindInt, event.KindBool}
	if len(ports) != len(kinds) {
		t.Fatalf("got %d ports, want %d", len(ports), len(kinds))
	}

	for i, k := range kinds {
		if ports[i].Kind != k {
			t.Errorf("port %d kind = %v, want %v", i, ports[i].Kind, k)
		}
	}
}

func TestProcessorEmitsMappedValues(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8)

	for _, raw := range [][]byte{
		midi.ControlChange(0, 7, 127),
		midi.ProgramChange(0, 127),
		midi.ControlChange(0, 64, 0),
		midi.ControlChange(0, 10, 50), // unassigned
	} {
		if err := f.input.Push(0, raw); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	f.run()

	vol := f.ctx.EventOutputs[0].Float()
	if vol.Len() != 1 || vol.At(0).Offset != 0 || vol.At(0).Value != 2 {
		t.Errorf("volume events = %v, want one event of 2 at offset 0", vol.Events())
	}

	mode := f.ctx.EventOutputs[1].Int()
	if mode.Len() != 1 || mode.At(0).Value != 4 {
		t.Errorf("mode events = %v, want 4", mode.Events())
	}

	mute := f.ctx.EventOutputs[2].Bool()
	if mute.Len() != 1 || mute.At(0).Value {
		t.Errorf("mute events = %v, want false", mute.Events())
	}

	if n := f.input.ApplyFeedback(f.store); n != 3 {
		t.Errorf("ApplyFeedback applied %d values, want 3", n)
	}

	if v, _ := f.store.Floats.Get(f.volume); v != 2 {
		t.Errorf("volume after feedback = %v, want 2", v)
	}

	if v, _ := f.store.Ints.Get(f.mode); v != 4 {
		t.Errorf("mode after feedback = %v, want 4", v)
	}

	f.run()

	if !f.ctx.EventOutputs[0].Empty() {
		t.Error("events must not repeat on the next block")
	}
}

func TestProcessorSkipsUnmappableTarget(t *testing.T) {
	t.Parallel()

	store := param.NewStore()
	id := store.Floats.Add(param.Descriptor[float64]{Name: "raw", Default: 0.5})
	slot, _ := store.Floats.Slot(id)

	in := NewInput(4)
	proc := NewProcessor(in, []Binding{
		{Source: Source{Controller: 1, Kind: ControlChange}, Target: FloatTarget(id), Float: slot},
	})

	arena := event.NewArena(event.DefaultArenaSize)
	out := event.NewSlot(event.KindFloat)
	out.Reset(arena, 16)

	ctx := &processor.Context{BufferSize: 16, EventOutputs: []*event.Slot{out}}

	if err := in.Push(0, midi.ControlChange(0, 1, 100)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	proc.Process(ctx)

	if !out.Empty() {
		t.Errorf("unmappable target emitted %v", out.Float().Events())
	}

	if n := in.ApplyFeedback(store); n != 0 {
		t.Errorf("ApplyFeedback applied %d values, want 0", n)
	}

	if v, _ := store.Floats.Get(id); v != 0.5 {
		t.Errorf("value = %v, want 0.5", v)
	}
}

func TestLearnCapturesNextController(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8)
	target := FloatTarget(f.volume)

	f.input.Learn(target)

	if !f.input.Learning() {
		t.Fatal("learn should be pending")
	}

	_ = f.input.Push(2, midi.ControlChange(5, 21, 64))
	_ = f.input.Push(2, midi.ControlChange(0, 7, 0))

	f.run()

	got, ok := f.input.PollLearned()
	if !ok {
		t.Fatal("nothing learned")
	}

	want := Learned{Source: Source{Device: 2, Channel: 5, Kind: ControlChange, Controller: 21}, Target: target}
	if got != want {
		t.Errorf("learned %+v, want %+v", got, want)
	}

	if f.input.Learning() {
		t.Error("learn must complete after one controller")
	}

	if vol := f.ctx.EventOutputs[0].Float(); vol.Len() != 1 || vol.At(0).Value != 0 {
		t.Errorf("controller after learn should drive volume, got %v", vol.Events())
	}

	f.input.Learn(target)
	f.input.Learn(Target{})

	if f.input.Learning() {
		t.Error("zero target must cancel learning")
	}
}

func TestPushReportsFullQueue(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	for range 2 {
		if err := f.input.Push(0, midi.ControlChange(0, 7, 1)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	err := f.input.Push(0, midi.ControlChange(0, 7, 1))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	if f.input.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", f.input.Dropped())
	}

	if err := f.input.Push(0, midi.NoteOff(0, 60)); err != nil {
		t.Errorf("ignored messages must not fail: %v", err)
	}
}
