package room

import (
	"testing"
	"time"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(testSettings)

	rm := reg.GetOrCreate("study-hall")
	if rm == nil {
		t.Fatal("GetOrCreate returned nil")
	}
	if rm.Code() != "study-hall" {
		t.Errorf("code = %q, want study-hall", rm.Code())
	}

	if again := reg.GetOrCreate("study-hall"); again != rm {
		t.Errorf("GetOrCreate must return the existing room")
	}
	if reg.Count() != 1 {
		t.Errorf("count = %d, want 1", reg.Count())
	}
}

func TestRegistryGetMiss(t *testing.T) {
	reg := NewRegistry(testSettings)

	if _, exists := reg.Get("nowhere"); exists {
		t.Errorf("Get on unknown code should miss")
	}
}

func TestRegistryDelete(t *testing.T) {
	reg := NewRegistry(testSettings)
	reg.GetOrCreate("study-hall")

	reg.Delete("study-hall")
	if _, exists := reg.Get("study-hall"); exists {
		t.Errorf("room still present after delete")
	}

	// Deleting an absent code is safe.
	reg.Delete("study-hall")
	reg.Delete("never-existed")
}

func TestRegistryOccupancyInvariant(t *testing.T) {
	// A code is present iff its room has at least one participant, for
	// any interleaving of joins and leaves driven through the caller
	// discipline: create on first join, delete on last leave.
	reg := NewRegistry(testSettings)
	now := time.Now()

	join := func(code, connID string) {
		rm := reg.GetOrCreate(code)
		if err := rm.AddParticipant(connID, "user-"+connID, "", now); err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
	}
	leave := func(code, connID string) {
		rm, exists := reg.Get(code)
		if !exists {
			t.Fatalf("leave from missing room %s", code)
		}
		if _, err := rm.RemoveParticipant(connID, now); err != nil {
			t.Fatalf("RemoveParticipant failed: %v", err)
		}
		if rm.Empty() {
			reg.Delete(code)
		}
	}
	present := func(code string) bool {
		_, exists := reg.Get(code)
		return exists
	}

	join("alpha", "c1")
	join("alpha", "c2")
	join("beta", "c3")

	if !present("alpha") || !present("beta") {
		t.Fatal("occupied rooms must be registered")
	}

	leave("alpha", "c1")
	if !present("alpha") {
		t.Errorf("alpha still occupied, must remain registered")
	}

	leave("alpha", "c2")
	if present("alpha") {
		t.Errorf("alpha empty, must be removed from registry")
	}

	leave("beta", "c3")
	if present("beta") {
		t.Errorf("beta empty, must be removed from registry")
	}
	if reg.Count() != 0 {
		t.Errorf("count = %d, want 0", reg.Count())
	}
}

func TestRegistryDeleteCancelsTimer(t *testing.T) {
	reg := NewRegistry(testSettings)
	fired := make(chan uint64, 4)
	reg.SetTimerExpireFunc(func(code string, generation uint64) {
		fired <- generation
	})

	rm := reg.GetOrCreate("ephemeral")
	now := time.Now()
	if err := rm.AddParticipant("c1", "alice", "", now); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if _, err := rm.StartTimer("c1", "focus", 20*time.Millisecond, now); err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}

	reg.Delete("ephemeral")

	// Destruction stops the handle; if the completion already escaped, its
	// generation is stale by the shutdown bump.
	select {
	case gen := <-fired:
		if rm.CompleteTimer(gen) {
			t.Errorf("completion took effect on a destroyed room")
		}
	case <-time.After(60 * time.Millisecond):
		// Handle stopped before firing.
	}
}
