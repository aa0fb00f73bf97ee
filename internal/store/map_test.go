package store

import "testing"

func openTestMap(t *testing.T) *PersistentMap[string, int] {
	t.Helper()
	m, err := OpenPersistentMap[string, int](t.TempDir(), "words", StringCodec{}, IntCodec{}, Options{})
	if err != nil {
		t.Fatalf("OpenPersistentMap: %v", err)
	}
	t.Cleanup(func() { m.Dispose() })
	return m
}

func TestPersistentMapGetSetDelete(t *testing.T) {
	m := openTestMap(t)

	if _, ok, err := m.Get("missing"); err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}

	if err := m.Set("hello", 3); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := m.Get("hello")
	if err != nil || !ok || v != 3 {
		t.Fatalf("expected (3, true, nil), got (%d, %v, %v)", v, ok, err)
	}

	if err := m.Set("hello", 5); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _, _ = m.Get("hello")
	if v != 5 {
		t.Fatalf("expected overwritten value 5, got %d", v)
	}

	if err := m.Delete("hello"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get("hello"); ok {
		t.Fatal("expected absent after delete")
	}

	if err := m.Delete("never-existed"); err != nil {
		t.Fatalf("Delete of absent key should not error, got %v", err)
	}
}

func TestPersistentMapContains(t *testing.T) {
	m := openTestMap(t)

	if ok, err := m.Contains("x"); err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	m.Set("x", 1)
	if ok, err := m.Contains("x"); err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}
}

func TestPersistentMapProcessAll(t *testing.T) {
	m := openTestMap(t)

	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		if err := m.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	got := make(map[string]int)
	err := m.ProcessAll(func(k string, v int) (bool, error) {
		got[k] = v
		return true, nil
	})
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %s: expected %d, got %d", k, v, got[k])
		}
	}
}

func TestPersistentMapProcessAllStopsEarly(t *testing.T) {
	m := openTestMap(t)
	for i, k := range []string{"a", "b", "c", "d"} {
		m.Set(k, i)
	}

	visited := 0
	m.ProcessAll(func(k string, v int) (bool, error) {
		visited++
		return false, nil
	})
	if visited != 1 {
		t.Fatalf("expected early stop after 1 visit, got %d", visited)
	}
}

func TestPersistentMapReopenPreservesData(t *testing.T) {
	dir := t.TempDir()

	m1, err := OpenPersistentMap[string, int](dir, "persist", StringCodec{}, IntCodec{}, Options{})
	if err != nil {
		t.Fatalf("OpenPersistentMap: %v", err)
	}
	m1.Set("durable", 42)
	if err := m1.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := m1.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	m2, err := OpenPersistentMap[string, int](dir, "persist", StringCodec{}, IntCodec{}, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Dispose()

	v, ok, err := m2.Get("durable")
	if err != nil || !ok || v != 42 {
		t.Fatalf("expected (42, true, nil) after reopen, got (%d, %v, %v)", v, ok, err)
	}
}
