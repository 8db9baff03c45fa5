package param

import (
	"errors"
	"sync"
	"testing"
)

func TestMapLifecycle(t *testing.T) {
	t.Parallel()

	m := NewMap[float64]()
	id := m.Add(FloatRange("volume", 1, 0, 2))

	if !id.Valid() {
		t.Fatal("issued ID must be valid")
	}

	v, err := m.Get(id)
	if err != nil || v != 1 {
		t.Fatalf("Get = %v, %v; want 1, nil", v, err)
	}

	if err := m.Set(id, 5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if v, _ := m.Get(id); v != 2 {
		t.Errorf("value should be clamped to 2, got %v", v)
	}

	m.Remove(id)

	if _, err := m.Get(id); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter after Remove, got %v", err)
	}

	if err := m.Set(id, 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter on Set, got %v", err)
	}
}

func TestIDsAreUniqueAcrossKinds(t *testing.T) {
	t.Parallel()

	s := NewStore()
	f := s.Floats.Add(FloatRange("f", 0, 0, 1))
	b := s.Bools.Add(Toggle("b", false))
	f2 := s.Floats.Add(FloatRange("f2", 0, 0, 1))

	if f.Uint64() == b.Uint64() || f.Uint64() == f2.Uint64() || b.Uint64() == f2.Uint64() {
		t.Error("IDs must be globally unique")
	}

	ids := s.Floats.IDs()
	if len(ids) != 2 || ids[0] != f || ids[1] != f2 {
		t.Errorf("IDs() = %v, want creation order", ids)
	}
}

func TestSnapshotChangesOnSet(t *testing.T) {
	t.Parallel()

	m := NewMap[int]()
	id := m.Add(IntRange("mode", 0, 0, 3))
	slot, _ := m.Slot(id)

	before := slot.Snapshot()

	slot.Set(2)

	after := slot.Snapshot()
	if before == after {
		t.Fatal("Set must publish a new snapshot")
	}

	if *before != 0 || *after != 2 {
		t.Errorf("snapshots = %d, %d; old snapshot must stay intact", *before, *after)
	}
}

func TestSetNormalized(t *testing.T) {
	t.Parallel()

	m := NewMap[float64]()
	id := m.Add(FloatRange("pan", 0, -1, 1))
	slot, _ := m.Slot(id)

	if !slot.SetNormalized(1) || slot.Get() != 1 {
		t.Errorf("normalized 1 should map to 1, got %v", slot.Get())
	}

	if !slot.SetNormalized(0.5) || slot.Get() != 0 {
		t.Errorf("normalized 0.5 should map to 0, got %v", slot.Get())
	}

	lm := NewMap[StereoLevel]()
	lid := lm.Add(Descriptor[StereoLevel]{Name: "level"})
	lslot, _ := lm.Slot(lid)

	if lslot.SetNormalized(1) {
		t.Error("stereo level has no normalized mapping")
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()

	m := NewMap[StereoLevel]()
	id := m.Add(Descriptor[StereoLevel]{Name: "level"})
	slot, _ := m.Slot(id)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range 1000 {
			v := float64(i)
			slot.Set(StereoLevel{Left: v, Right: v})
		}
	}()

	for range 1000 {
		lvl := slot.Get()
		if lvl.Left != lvl.Right {
			t.Fatalf("torn read: %+v", lvl)
		}
	}

	wg.Wait()
}
