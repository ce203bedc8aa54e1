package metrics

import (
	"sync"
	"testing"
)

func TestCounterConcurrentInc(t *testing.T) {
	reg := NewRegistry()
	c := reg.Counter("events")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	if got := c.Value(); got != 10_000 {
		t.Fatalf("expected 10000, got %d", got)
	}
}

func TestRegistryReturnsSameCounter(t *testing.T) {
	reg := NewRegistry()

	a := reg.Counter("processed")
	b := reg.Counter("processed")
	if a != b {
		t.Fatal("expected the same counter instance for the same name")
	}

	a.Inc()
	if b.Value() != 1 {
		t.Fatal("counters with the same name must share state")
	}
}

func TestSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.Counter("a").Inc()
	reg.Counter("a").Inc()
	reg.Counter("b")

	snap := reg.Snapshot()
	if snap["a"] != 2 || snap["b"] != 0 {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names: %v", names)
	}
}
