package fileindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jpl-au/fileindex/internal/store"
)

// updatableIndex composes a memoryOverlay (forward: key -> ValueContainer)
// with an inputToKeys reverse map, kept in lockstep under one RWMutex per
// index so readers never block readers but every write sees a consistent
// forward/reverse pair. Grounded on folio's append-then-blank update shape
// (set.go): Update diffs the old key set against the new one and retracts
// exactly the stale associations rather than rebuilding the whole
// container.
type updatableIndex[K comparable, V comparable] struct {
	id IndexId

	mu      sync.RWMutex
	overlay *memoryOverlay[K, V]
	reverse *inputToKeys[K]
}

func openUpdatableIndex[K comparable, V comparable](root string, id IndexId, keyCodec store.KeyCodec[K], bus *eventBus) (*updatableIndex[K, V], error) {
	dir := filepath.Join(root, string(id))

	forward, err := store.OpenPersistentMap[K, *ValueContainer[V]](dir, "storage", keyCodec, valueContainerCodec[V]{}, store.Options{})
	if err != nil {
		return nil, fmt.Errorf("open forward map for %s: %w", id, err)
	}

	reverse, err := openInputToKeys[K](dir, keyCodec, bus, id)
	if err != nil {
		forward.Dispose()
		return nil, fmt.Errorf("open reverse map for %s: %w", id, err)
	}

	return &updatableIndex[K, V]{
		id:      id,
		overlay: newMemoryOverlay[K, V](forward, bus, id),
		reverse: reverse,
	}, nil
}

// ID returns the index identifier this instance serves.
func (u *updatableIndex[K, V]) ID() IndexId { return u.id }

// Update re-indexes inputID against content, retracting whatever keys it
// previously contributed that are no longer present and adding whatever
// new (key, value) pairs the indexer produced.
func (u *updatableIndex[K, V]) Update(ctx context.Context, inputID int, content []byte, idx Indexer[K, V]) error {
	fresh, err := idx.Index(ctx, inputID, content)
	if err != nil {
		return fmt.Errorf("%w: indexer: %v", ErrStorage, err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	oldKeys, err := u.reverse.Get(inputID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	still := make(map[K]bool, len(fresh))
	for k := range fresh {
		still[k] = true
	}

	for _, k := range oldKeys {
		if still[k] {
			continue
		}
		container, err := u.overlay.Get(k)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if container == nil {
			continue
		}
		container.RemoveInput(inputID)
		if container.IsEmpty() {
			if err := u.overlay.Delete(k); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
			continue
		}
		if err := u.overlay.Set(k, container); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	newKeys := make([]K, 0, len(fresh))
	for k, v := range fresh {
		newKeys = append(newKeys, k)
		container, err := u.overlay.Get(k)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if container == nil {
			container = NewValueContainer[V]()
		}
		container.Add(v, inputID)
		if err := u.overlay.Set(k, container); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	if err := u.reverse.Set(inputID, newKeys); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// RemoveInput retracts every association inputID contributed, used when a
// file is deleted.
func (u *updatableIndex[K, V]) RemoveInput(inputID int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	oldKeys, err := u.reverse.Get(inputID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, k := range oldKeys {
		container, err := u.overlay.Get(k)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if container == nil {
			continue
		}
		container.RemoveInput(inputID)
		if container.IsEmpty() {
			if err := u.overlay.Delete(k); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
			continue
		}
		if err := u.overlay.Set(k, container); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return u.reverse.Delete(inputID)
}

// GetData returns the container for key, or nil if the key is absent.
func (u *updatableIndex[K, V]) GetData(key K) (*ValueContainer[V], error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.overlay.Get(key)
}

// ProcessAllKeys visits every key currently present in the forward index.
func (u *updatableIndex[K, V]) ProcessAllKeys(visit func(K) bool) error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.overlay.ProcessAllKeys(visit)
}

// SetBuffering toggles buffering mode on the forward overlay. The reverse
// map (u.reverse) is subscribed to the same bufferingStateChanged event
// the overlay publishes, so it enters and leaves buffering in lockstep
// without a second direct call here.
func (u *updatableIndex[K, V]) SetBuffering(on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.overlay.SetBuffering(on)
}

// Flush persists any buffered overlay changes and flushes the reverse map.
func (u *updatableIndex[K, V]) Flush() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.overlay.Flush(); err != nil {
		return err
	}
	return u.reverse.Flush()
}

// Clear removes every entry from both the forward and reverse maps.
func (u *updatableIndex[K, V]) Clear() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var keys []K
	u.overlay.ProcessAllKeys(func(k K) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		if err := u.overlay.Delete(k); err != nil {
			return err
		}
	}

	var inputIDs []int
	u.reverse.ProcessAll(func(id int, _ []K) (bool, error) {
		inputIDs = append(inputIDs, id)
		return true, nil
	})
	for _, id := range inputIDs {
		if err := u.reverse.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// Dispose closes both underlying maps. The index must not be used
// afterwards.
func (u *updatableIndex[K, V]) Dispose() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.overlay.Dispose(); err != nil {
		return err
	}
	return u.reverse.Dispose()
}
