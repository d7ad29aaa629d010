package metrics

import "testing"

func TestRegistry_RegisterOnce(t *testing.T) {
	r := NewRegistry()
	c := NewContext("writer")

	if !r.Register(c) {
		t.Fatal("first Register should return true")
	}
	if r.Register(c) {
		t.Error("second Register of the same context should return false")
	}
	if r.Register(nil) {
		t.Error("Register(nil) should return false")
	}
	if got := len(r.Contexts()); got != 1 {
		t.Errorf("len(Contexts()) = %d, want 1", got)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	a := NewContext("a")
	b := NewContext("b")
	r.Register(a)
	r.Register(b)

	r.Unregister(a)

	contexts := r.Contexts()
	if len(contexts) != 1 || contexts[0] != b {
		t.Errorf("Contexts() = %v, want [b]", contexts)
	}
}

func TestRegistry_Snapshots(t *testing.T) {
	r := NewRegistry()
	c := NewContext("writer")
	c.Counter("records.written").Add(5)
	r.Register(c)

	snaps := r.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("len(Snapshots()) = %d, want 1", len(snaps))
	}
	if snaps[0].Counters["records.written"] != 5 {
		t.Errorf("records.written = %d, want 5", snaps[0].Counters["records.written"])
	}
}
