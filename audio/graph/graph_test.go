package graph

import (
	"testing"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

func out(p processor.Processor, port int) Endpoint { return Endpoint{Proc: p, Port: port} }

func in(p processor.Processor, port int) Endpoint { return Endpoint{Proc: p, Port: port} }

func TestConnectReplaces(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	b := processor.NewConstant("b", 2)
	sink := processor.NewClip("sink", -1, 1)

	g.Connect(out(a, 0), in(sink, 0))
	g.Connect(out(b, 0), in(sink, 0))

	src, ok := g.ConnectedSource(in(sink, 0))
	if !ok || src.Proc != b {
		t.Fatalf("ConnectedSource = %v, %v; want b", src, ok)
	}

	if g.HasWire(out(a, 0), in(sink, 0)) {
		t.Error("replaced wire must be gone")
	}

	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
}

func TestMixAccumulates(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	b := processor.NewConstant("b", 2)
	sink := processor.NewClip("sink", -1, 1)

	g.Mix(out(a, 0), in(sink, 0))
	g.Mix(out(b, 0), in(sink, 0))
	g.Mix(out(b, 0), in(sink, 0))

	if n := len(g.Sources(in(sink, 0))); n != 2 {
		t.Fatalf("Sources() has %d entries, want 2", n)
	}

	if _, ok := g.ConnectedSource(in(sink, 0)); ok {
		t.Error("ConnectedSource must report false for a summing point")
	}
}

func TestUnconnectedQueries(t *testing.T) {
	t.Parallel()

	g := New()
	sink := processor.NewAmplifier("amp", 1)
	g.Add(sink)

	if _, ok := g.ConnectedSource(in(sink, 0)); ok {
		t.Error("unconnected audio input must report no source")
	}

	if _, ok := g.ConnectedEventSource(in(sink, 0)); ok {
		t.Error("unconnected event input must report no source")
	}
}

func TestConnectEventChecksKind(t *testing.T) {
	t.Parallel()

	g := New()
	ms := processor.NewMuteSolo("ms", false, false, false)
	amp := processor.NewAmplifier("amp", 1)
	pan := processor.NewPan("pan", processor.Linear)

	g.ConnectEvent(out(ms, 0), in(amp, 0))

	if !g.HasEventWire(out(ms, 0), in(amp, 0)) {
		t.Fatal("event wire missing")
	}

	defer func() {
		if recover() == nil {
			t.Error("wiring a float output to a bool input must panic")
		}
	}()

	g.ConnectEvent(out(pan, 0), in(ms, 0))
}

func TestConnectInvalidPortPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("connecting a missing port must panic")
		}
	}()

	New().Connect(out(processor.NewConstant("c", 0), 1), in(processor.NewIdentity("id"), 0))
}

func TestRemoveProcessor(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	b := processor.NewConstant("b", 2)
	sink := processor.NewClip("sink", -1, 1)

	g.Mix(out(a, 0), in(sink, 0))
	g.Mix(out(b, 0), in(sink, 0))
	g.RemoveProcessor(a)

	if g.Contains(a) {
		t.Error("removed processor still present")
	}

	src, ok := g.ConnectedSource(in(sink, 0))
	if !ok || src.Proc != b {
		t.Errorf("remaining source = %v, %v; want b", src, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	sink := processor.NewClip("sink", -1, 1)
	g.Connect(out(a, 0), in(sink, 0))

	c := g.Clone()
	c.Disconnect(in(sink, 0))

	if !g.HasWire(out(a, 0), in(sink, 0)) {
		t.Error("mutating the clone changed the original")
	}
}

func TestWiresOrderedByRegistration(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	b := processor.NewConstant("b", 2)
	o := processor.NewMix("o", 2)

	g.Add(a)
	g.Add(b)
	g.Connect(out(b, 0), in(o, 1))
	g.Connect(out(a, 0), in(o, 0))

	wires := g.Wires()
	if len(wires) != 2 || wires[0].Src.Proc != a || wires[1].Src.Proc != b {
		t.Errorf("wires = %v", wires)
	}
}

func TestRemoveIdentityProcessors(t *testing.T) {
	t.Parallel()

	g := New()
	src := processor.NewConstant("src", 1)
	id1 := processor.NewIdentity("id1")
	id2 := processor.NewIdentity("id2")
	left := processor.NewClip("left", -1, 1)
	right := processor.NewClip("right", -1, 1)

	g.Connect(out(src, 0), in(id1, 0))
	g.Connect(out(id1, 0), in(id2, 0))
	g.Connect(out(id2, 0), in(left, 0))
	g.Connect(out(id2, 0), in(right, 0))

	if n := RemoveIdentityProcessors(g); n != 2 {
		t.Fatalf("removed %d identities, want 2", n)
	}

	for _, dst := range []Endpoint{in(left, 0), in(right, 0)} {
		if !g.HasWire(out(src, 0), dst) {
			t.Errorf("%s not wired to source after elision", dst.Proc.Name())
		}
	}

	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
}

func TestRemoveUnconnectedIdentity(t *testing.T) {
	t.Parallel()

	g := New()
	id := processor.NewIdentity("id")
	sink := processor.NewClip("sink", -1, 1)
	g.Connect(out(id, 0), in(sink, 0))

	RemoveIdentityProcessors(g)

	if len(g.Sources(in(sink, 0))) != 0 {
		t.Error("consumer of an unconnected identity must become unconnected")
	}
}

func TestDisconnectEventLeavesProcessors(t *testing.T) {
	t.Parallel()

	g := New()
	ms := processor.NewMuteSolo("ms", false, false, false)
	amp := processor.NewAmplifier("amp", 1)
	other := processor.NewAmplifier("other", 1)

	g.ConnectEvent(out(ms, 0), in(amp, 0))
	g.ConnectEvent(out(ms, 0), in(other, 0))

	g.DisconnectEvent(in(amp, 0))

	if g.HasEventWire(out(ms, 0), in(amp, 0)) {
		t.Error("event wire still present")
	}

	if _, ok := g.ConnectedEventSource(in(amp, 0)); ok {
		t.Error("disconnected input still reports a source")
	}

	if !g.HasEventWire(out(ms, 0), in(other, 0)) {
		t.Error("unrelated event wire was removed")
	}

	if !g.Contains(amp) || len(g.EventWires()) != 1 {
		t.Errorf("processors %d, event wires %d", g.Len(), len(g.EventWires()))
	}

	// Disconnecting an unconnected input is a no-op.
	g.DisconnectEvent(in(amp, 0))
}

func TestRemoveEventIdentityProcessors(t *testing.T) {
	t.Parallel()

	g := New()
	pan := processor.NewPan("pan", processor.Linear)
	eid := processor.NewEventIdentity("eid", event.KindFloat)
	amp := processor.NewAmplifier("amp", 1)

	g.ConnectEvent(out(pan, 1), in(eid, 0))
	g.ConnectEvent(out(eid, 0), in(amp, 0))

	if n := RemoveEventIdentityProcessors(g); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}

	if !g.HasEventWire(out(pan, 1), in(amp, 0)) {
		t.Error("event identity was not bypassed")
	}
}

func TestFinalizeInsertsOneMixerPerSummingPoint(t *testing.T) {
	t.Parallel()

	for _, k := range []int{2, 3, 5} {
		g := New()
		sink := processor.NewClip("sink", -10, 10)

		for i := range k {
			g.Mix(out(processor.NewConstant("c", float64(i)), 0), in(sink, 0))
		}

		final, mixers := Finalize(g)

		if len(mixers) != 1 {
			t.Fatalf("k=%d: %d mixers, want 1", k, len(mixers))
		}

		if mixers[0].NumInputs() != k {
			t.Errorf("k=%d: mixer has %d inputs", k, mixers[0].NumInputs())
		}

		if !final.HasWire(out(mixers[0], 0), in(sink, 0)) {
			t.Errorf("k=%d: mixer does not feed the destination", k)
		}

		if !IsFinal(final) {
			t.Errorf("k=%d: result is not final", k)
		}

		if len(g.Sources(in(sink, 0))) != k {
			t.Errorf("k=%d: Finalize modified its input", k)
		}
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	g := New()
	a := processor.NewConstant("a", 1)
	b := processor.NewConstant("b", 2)
	id := processor.NewIdentity("id")
	eid := processor.NewEventIdentity("eid", event.KindFloat)
	pan := processor.NewPan("pan", processor.Linear)
	amp := processor.NewAmplifier("amp", 1)

	g.Mix(out(a, 0), in(id, 0))
	g.Mix(out(b, 0), in(id, 0))
	g.Connect(out(id, 0), in(amp, 0))
	g.ConnectEvent(out(pan, 0), in(eid, 0))
	g.ConnectEvent(out(eid, 0), in(amp, 0))

	once, mixers := Finalize(g)
	if len(mixers) != 1 {
		t.Fatalf("first pass inserted %d mixers, want 1", len(mixers))
	}

	twice, again := Finalize(once)
	if len(again) != 0 {
		t.Errorf("second pass inserted %d mixers", len(again))
	}

	if twice.Len() != once.Len() {
		t.Errorf("second pass changed processor count %d -> %d", once.Len(), twice.Len())
	}

	if RemoveIdentityProcessors(twice.Clone()) != 0 || RemoveEventIdentityProcessors(twice.Clone()) != 0 {
		t.Error("finalized graph still holds identities")
	}
}
