package fileindex

import (
	"context"
	"sort"
	"testing"

	"github.com/jpl-au/fileindex/internal/store"
)

// fixedIndexer maps inputID to a pre-set (key -> value) table, letting
// tests control exactly what Update sees without parsing real content.
type fixedIndexer struct {
	table map[int]map[string]int
}

func (f fixedIndexer) Index(_ context.Context, inputID int, _ []byte) (map[string]int, error) {
	return f.table[inputID], nil
}

func openTestIndex(t *testing.T) *updatableIndex[string, int] {
	t.Helper()
	idx, err := openUpdatableIndex[string, int](t.TempDir(), IndexId("test"), store.StringCodec{}, newEventBus())
	if err != nil {
		t.Fatalf("openUpdatableIndex: %v", err)
	}
	t.Cleanup(func() { idx.Dispose() })
	return idx
}

func TestUpdatableIndexUpdateAddsKeys(t *testing.T) {
	idx := openTestIndex(t)
	indexer := fixedIndexer{table: map[int]map[string]int{1: {"hello": 1, "world": 2}}}

	if err := idx.Update(context.Background(), 1, nil, indexer); err != nil {
		t.Fatalf("Update: %v", err)
	}

	container, err := idx.GetData("hello")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if container == nil {
		t.Fatal("expected container for hello")
	}
	ids := container.InputIDsFor(1)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected [1], got %v", ids)
	}
}

func TestUpdatableIndexUpdateRetractsStaleKeys(t *testing.T) {
	idx := openTestIndex(t)
	indexer := fixedIndexer{table: map[int]map[string]int{
		1: {"alpha": 1, "beta": 1},
	}}
	if err := idx.Update(context.Background(), 1, nil, indexer); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	// Reindex the same file with different content: "beta" drops out,
	// "gamma" appears.
	indexer.table[1] = map[string]int{"alpha": 1, "gamma": 1}
	if err := idx.Update(context.Background(), 1, nil, indexer); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	if c, _ := idx.GetData("beta"); c != nil {
		t.Fatal("expected beta to be retracted after reindex")
	}
	if c, _ := idx.GetData("gamma"); c == nil {
		t.Fatal("expected gamma to be present after reindex")
	}
	if c, _ := idx.GetData("alpha"); c == nil {
		t.Fatal("expected alpha to survive reindex (still present in fresh keys)")
	}
}

func TestUpdatableIndexRemoveInput(t *testing.T) {
	idx := openTestIndex(t)
	indexer := fixedIndexer{table: map[int]map[string]int{
		1: {"shared": 1},
		2: {"shared": 1},
	}}
	idx.Update(context.Background(), 1, nil, indexer)
	idx.Update(context.Background(), 2, nil, indexer)

	if err := idx.RemoveInput(1); err != nil {
		t.Fatalf("RemoveInput: %v", err)
	}

	container, err := idx.GetData("shared")
	if err != nil || container == nil {
		t.Fatalf("expected shared to survive since input 2 still contributes, err=%v container=%v", err, container)
	}
	ids := container.AllInputIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected only input 2 remaining, got %v", ids)
	}

	if err := idx.RemoveInput(2); err != nil {
		t.Fatalf("RemoveInput: %v", err)
	}
	if c, _ := idx.GetData("shared"); c != nil {
		t.Fatal("expected shared to be dropped once its last input is removed")
	}
}

func TestUpdatableIndexProcessAllKeys(t *testing.T) {
	idx := openTestIndex(t)
	indexer := fixedIndexer{table: map[int]map[string]int{1: {"a": 1, "b": 1, "c": 1}}}
	idx.Update(context.Background(), 1, nil, indexer)

	var keys []string
	idx.ProcessAllKeys(func(k string) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("expected [a b c], got %v", keys)
	}
}

func TestUpdatableIndexClear(t *testing.T) {
	idx := openTestIndex(t)
	indexer := fixedIndexer{table: map[int]map[string]int{1: {"a": 1}, 2: {"b": 1}}}
	idx.Update(context.Background(), 1, nil, indexer)
	idx.Update(context.Background(), 2, nil, indexer)

	if err := idx.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	var keys []string
	idx.ProcessAllKeys(func(k string) bool {
		keys = append(keys, k)
		return true
	})
	if len(keys) != 0 {
		t.Fatalf("expected no keys after Clear, got %v", keys)
	}
}
