package main

import "testing"

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewSpaceRegistry(nil)

	s, err := r.Create("s1", "First")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Get("s1") != s {
		t.Error("lookup returned a different space")
	}
	if r.Get("missing") != nil {
		t.Error("unknown id should return nil")
	}
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewSpaceRegistry(nil)
	r.Create("s1", "First")
	if _, err := r.Create("s1", "Again"); err != ErrSpaceExists {
		t.Fatalf("expected ErrSpaceExists, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("duplicate create changed the count: %d", r.Count())
	}
}

func TestRegistryRandom(t *testing.T) {
	r := NewSpaceRegistry(nil)
	if _, ok := r.Random(); ok {
		t.Fatal("Random on empty registry should report none")
	}

	ids := map[string]bool{"s1": false, "s2": false, "s3": false}
	for id := range ids {
		r.Create(id, id)
	}
	for i := 0; i < 50; i++ {
		id, ok := r.Random()
		if !ok {
			t.Fatal("Random failed with spaces present")
		}
		if _, known := ids[id]; !known {
			t.Fatalf("Random returned unknown id %q", id)
		}
		ids[id] = true
	}
}
