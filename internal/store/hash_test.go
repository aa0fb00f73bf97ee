package store

import "testing"

func TestHashIDLength(t *testing.T) {
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		id := hashID([]byte("some key"), alg)
		if len(id) != 16 {
			t.Errorf("alg %d: expected 16 hex chars, got %q (%d)", alg, id, len(id))
		}
	}
}

func TestHashIDDeterministic(t *testing.T) {
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		a := hashID([]byte("repeatable"), alg)
		b := hashID([]byte("repeatable"), alg)
		if a != b {
			t.Errorf("alg %d: expected deterministic hash, got %q != %q", alg, a, b)
		}
	}
}

func TestHashIDDiffersPerAlgorithm(t *testing.T) {
	key := []byte("same key, different algorithms")
	a := hashID(key, AlgXXHash3)
	b := hashID(key, AlgFNV1a)
	c := hashID(key, AlgBlake2b)
	if a == b || b == c || a == c {
		t.Errorf("expected distinct hashes per algorithm, got %q %q %q", a, b, c)
	}
}

func TestHashIDUnknownAlgorithmDefaultsToXXHash3(t *testing.T) {
	key := []byte("fallback")
	if hashID(key, 99) != hashID(key, AlgXXHash3) {
		t.Error("expected unknown algorithm to fall back to xxh3")
	}
}
