package fileindex

import (
	"sync"

	"github.com/jpl-au/fileindex/internal/store"
)

// memoryOverlay wraps a durable PersistentMap with an in-memory buffering
// mode: while buffering is on, Get/Set/Delete operate on an in-memory
// change map only and the durable map is left untouched, so a caller can
// query "what if" state (e.g. an unsaved editor buffer) without writing it
// to disk. Toggling buffering off drops the change map without flushing
// it anywhere; ProcessAll merges the change map over the durable map.
//
// Grounded on folio's in-place single-writer-lock model (one sync.Mutex
// per store guarding every mutation, per db.go), generalized to guard the
// overlay's buffering toggle and change map with the overlay's own
// sync.Mutex, separate from the lock the durable PersistentMap uses.
type memoryOverlay[K comparable, V comparable] struct {
	mu        sync.Mutex
	durable   *store.PersistentMap[K, *ValueContainer[V]]
	buffering bool
	changes   map[K]*ValueContainer[V]
	deleted   map[K]bool
	bus       *eventBus
	id        IndexId
}

func newMemoryOverlay[K comparable, V comparable](durable *store.PersistentMap[K, *ValueContainer[V]], bus *eventBus, id IndexId) *memoryOverlay[K, V] {
	return &memoryOverlay[K, V]{
		durable: durable,
		changes: make(map[K]*ValueContainer[V]),
		deleted: make(map[K]bool),
		bus:     bus,
		id:      id,
	}
}

// SetBuffering toggles buffering mode. Turning it off clears the pending
// change map without persisting it, mirroring spec.md §4.2's "toggling
// buffering off clears the change map without flushing".
func (o *memoryOverlay[K, V]) SetBuffering(on bool) {
	o.mu.Lock()
	changed := o.buffering != on
	o.buffering = on
	if !on {
		o.changes = make(map[K]*ValueContainer[V])
		o.deleted = make(map[K]bool)
	}
	o.mu.Unlock()

	if changed && o.bus != nil {
		o.bus.publishBufferingChanged(o.id, on)
		if !on {
			o.bus.publishMemoryCleared(o.id)
		}
	}
}

// IsBuffering reports the current buffering state.
func (o *memoryOverlay[K, V]) IsBuffering() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffering
}

// Get returns the container for key, preferring a buffered change over the
// durable map.
func (o *memoryOverlay[K, V]) Get(key K) (*ValueContainer[V], error) {
	o.mu.Lock()
	if o.buffering {
		if o.deleted[key] {
			o.mu.Unlock()
			return nil, nil
		}
		if c, ok := o.changes[key]; ok {
			o.mu.Unlock()
			return c, nil
		}
	}
	o.mu.Unlock()

	c, ok, err := o.durable.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return c, nil
}

// Set stores container for key, buffered if buffering is on.
func (o *memoryOverlay[K, V]) Set(key K, container *ValueContainer[V]) error {
	o.mu.Lock()
	if o.buffering {
		delete(o.deleted, key)
		o.changes[key] = container
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return o.durable.Set(key, container)
}

// Delete removes key's container, buffered if buffering is on.
func (o *memoryOverlay[K, V]) Delete(key K) error {
	o.mu.Lock()
	if o.buffering {
		delete(o.changes, key)
		o.deleted[key] = true
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return o.durable.Delete(key)
}

// ProcessAllKeys visits every key present in the merged view (durable
// map with buffered changes applied on top). visit returns false to stop
// early.
func (o *memoryOverlay[K, V]) ProcessAllKeys(visit func(K) bool) error {
	o.mu.Lock()
	deleted := make(map[K]bool, len(o.deleted))
	for k := range o.deleted {
		deleted[k] = true
	}
	extra := make([]K, 0, len(o.changes))
	for k := range o.changes {
		extra = append(extra, k)
	}
	o.mu.Unlock()

	seen := make(map[K]bool)
	stop := false
	err := o.durable.ProcessAll(func(k K, _ *ValueContainer[V]) (bool, error) {
		seen[k] = true
		if deleted[k] {
			return true, nil
		}
		if !visit(k) {
			stop = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if stop {
		return nil
	}

	for _, k := range extra {
		if seen[k] {
			continue
		}
		if !visit(k) {
			return nil
		}
	}
	return nil
}

// Flush persists pending buffered changes to the durable map and clears
// the change map. It does not toggle buffering off.
func (o *memoryOverlay[K, V]) Flush() error {
	o.mu.Lock()
	changes := o.changes
	deleted := o.deleted
	o.changes = make(map[K]*ValueContainer[V])
	o.deleted = make(map[K]bool)
	o.mu.Unlock()

	for k := range deleted {
		if err := o.durable.Delete(k); err != nil {
			return err
		}
	}
	for k, v := range changes {
		if err := o.durable.Set(k, v); err != nil {
			return err
		}
	}
	return o.durable.Flush()
}

// Dispose closes the durable map. The overlay must not be used afterwards.
func (o *memoryOverlay[K, V]) Dispose() error {
	return o.durable.Dispose()
}
