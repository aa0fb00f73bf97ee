package fileindex

import (
	"sort"
	"testing"
)

func TestValueContainerAddRemove(t *testing.T) {
	c := NewValueContainer[int]()
	if !c.IsEmpty() {
		t.Fatal("expected new container to be empty")
	}

	c.Add(3, 10)
	c.Add(3, 11)
	c.Add(5, 10)

	if c.IsEmpty() {
		t.Fatal("expected non-empty after Add")
	}

	values := c.Values()
	sort.Ints(values)
	if len(values) != 2 || values[0] != 3 || values[1] != 5 {
		t.Fatalf("expected values [3 5], got %v", values)
	}

	ids := c.InputIDsFor(3)
	sort.Ints(ids)
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("expected input ids [10 11] for value 3, got %v", ids)
	}

	c.Remove(3, 10)
	ids = c.InputIDsFor(3)
	if len(ids) != 1 || ids[0] != 11 {
		t.Fatalf("expected [11] remaining for value 3, got %v", ids)
	}

	c.Remove(3, 11)
	if len(c.InputIDsFor(3)) != 0 {
		t.Fatal("expected value 3 to be pruned once empty")
	}
}

func TestValueContainerRemoveInput(t *testing.T) {
	c := NewValueContainer[string]()
	c.Add("a", 1)
	c.Add("b", 1)
	c.Add("b", 2)

	c.RemoveInput(1)

	all := c.AllInputIDs()
	if len(all) != 1 || all[0] != 2 {
		t.Fatalf("expected only input 2 to remain, got %v", all)
	}
	if len(c.InputIDsFor("a")) != 0 {
		t.Fatal("expected value a to be pruned after its only input was removed")
	}
}

func TestValueContainerAllInputIDsUnion(t *testing.T) {
	c := NewValueContainer[int]()
	c.Add(1, 100)
	c.Add(2, 100)
	c.Add(2, 200)

	all := c.AllInputIDs()
	sort.Ints(all)
	if len(all) != 2 || all[0] != 100 || all[1] != 200 {
		t.Fatalf("expected union [100 200], got %v", all)
	}
}

func TestValueContainerClone(t *testing.T) {
	c := NewValueContainer[int]()
	c.Add(1, 100)

	clone := c.Clone()
	clone.Add(2, 200)

	if len(c.Values()) != 1 {
		t.Fatal("expected original container to be unaffected by mutating the clone")
	}
	if len(clone.Values()) != 2 {
		t.Fatalf("expected clone to have 2 values, got %d", len(clone.Values()))
	}
}

func TestValueContainerCodecRoundTrip(t *testing.T) {
	c := NewValueContainer[string]()
	c.Add("v1", 1)
	c.Add("v1", 2)
	c.Add("v2", 3)

	codec := valueContainerCodec[string]{}
	encoded, err := codec.EncodeValue(c)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}

	decoded, err := codec.DecodeValue(encoded)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}

	got := decoded.AllInputIDs()
	want := c.AllInputIDs()
	sort.Ints(got)
	sort.Ints(want)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
