package httpapi

import (
	"sync"
	"testing"
)

func TestConnRegistryGlobalCap(t *testing.T) {
	cr := NewConnRegistry(3, 5)

	for i := 0; i < 3; i++ {
		if reason := cr.Add("10.0.0.1"); reason != RejectNone {
			t.Fatalf("Add %d refused: %s", i, reason)
		}
	}
	// Per-IP cap (5) not yet reached, so the global cap must refuse.
	if reason := cr.Add("10.0.0.2"); reason != RejectGlobalLimit {
		t.Errorf("over-cap Add = %q, want %q", reason, RejectGlobalLimit)
	}
	if n := cr.ActiveCount(); n != 3 {
		t.Errorf("ActiveCount = %d, want 3", n)
	}
}

func TestConnRegistryPerIPCap(t *testing.T) {
	cr := NewConnRegistry(50, 2)

	if reason := cr.Add("10.0.0.1"); reason != RejectNone {
		t.Fatal(reason)
	}
	if reason := cr.Add("10.0.0.1"); reason != RejectNone {
		t.Fatal(reason)
	}
	if reason := cr.Add("10.0.0.1"); reason != RejectIPLimit {
		t.Errorf("per-IP over-cap = %q, want %q", reason, RejectIPLimit)
	}
	// Other addresses are unaffected.
	if reason := cr.Add("10.0.0.2"); reason != RejectNone {
		t.Errorf("other address refused: %s", reason)
	}
}

func TestConnRegistryDoneReleasesQuota(t *testing.T) {
	cr := NewConnRegistry(50, 1)

	if reason := cr.Add("10.0.0.1"); reason != RejectNone {
		t.Fatal(reason)
	}
	cr.Done("10.0.0.1")
	if reason := cr.Add("10.0.0.1"); reason != RejectNone {
		t.Errorf("quota not released: %s", reason)
	}
}

func TestConnRegistryDraining(t *testing.T) {
	cr := NewConnRegistry(50, 5)
	if reason := cr.Add("10.0.0.1"); reason != RejectNone {
		t.Fatal(reason)
	}

	cr.StartDraining()
	if reason := cr.Add("10.0.0.2"); reason != RejectDraining {
		t.Errorf("draining Add = %q, want %q", reason, RejectDraining)
	}

	done := make(chan struct{})
	go func() {
		cr.Wait()
		close(done)
	}()
	cr.Done("10.0.0.1")
	<-done
}

func TestConnRegistryConcurrentAdds(t *testing.T) {
	cr := NewConnRegistry(10, 10)

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cr.Add("10.0.0.1") == RejectNone {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	n := 0
	for range admitted {
		n++
	}
	if n != 10 {
		t.Errorf("admitted = %d, want exactly the cap", n)
	}
}

func TestConnRegistryDefaults(t *testing.T) {
	cr := NewConnRegistry(0, 0)
	if cr.maxGlobal != 50 || cr.maxPerIP != 5 {
		t.Errorf("defaults = %d/%d, want 50/5", cr.maxGlobal, cr.maxPerIP)
	}
}
