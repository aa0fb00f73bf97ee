package fileindex

import (
	"sync"

	"github.com/jpl-au/fileindex/internal/store"

	json "github.com/goccy/go-json"
)

// inputToKeys is the reverse index: input file id -> the set of keys that
// file currently contributes to the forward index. Kept in lockstep with
// the forward PersistentMap under the same UpdatableIndex lock so a
// reindex can diff old keys against new ones and retract exactly the
// stale associations, the way folio's set.go retires a superseded record
// rather than appending an unbounded history.
//
// It carries its own buffering overlay, mirroring memoryOverlay: while
// buffering is on (an unsaved-document edit in progress), Set/Delete are
// held in memory rather than written through to the durable map, and
// turning buffering off discards them. This keeps the reverse map's
// buffering state in lockstep with the forward overlay's, driven by the
// same bufferingStateChanged event memoryOverlay publishes, so an
// unsaved edit never leaks into the on-disk reverse index and a discarded
// buffer never leaves it pointing at content that was never committed.
type inputToKeys[K comparable] struct {
	mu        sync.Mutex
	pmap      *store.PersistentMap[int, []K]
	buffering bool
	changes   map[int][]K
	deleted   map[int]bool
}

// openInputToKeys opens the reverse-index file under dir and subscribes
// it to bus's buffering-changed topic for id, so it tracks whatever
// buffering state the forward overlay for the same index is in.
func openInputToKeys[K comparable](dir string, keyCodec store.KeyCodec[K], bus *eventBus, id IndexId) (*inputToKeys[K], error) {
	pmap, err := store.OpenPersistentMap[int, []K](dir, "input_to_keys", store.IntCodec{}, collectionCodec[K]{}, store.Options{})
	if err != nil {
		return nil, err
	}
	i := &inputToKeys[K]{
		pmap:    pmap,
		changes: make(map[int][]K),
		deleted: make(map[int]bool),
	}
	if bus != nil {
		bus.subscribeBufferingChanged(func(changedID IndexId, on bool) {
			if changedID != id {
				return
			}
			i.setBuffering(on)
		})
	}
	return i, nil
}

// setBuffering toggles buffering mode. Turning it off clears the pending
// change map without persisting it, matching memoryOverlay.SetBuffering.
func (i *inputToKeys[K]) setBuffering(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.buffering = on
	if !on {
		i.changes = make(map[int][]K)
		i.deleted = make(map[int]bool)
	}
}

// Get returns the keys currently recorded for inputID, preferring a
// buffered change over the durable map.
func (i *inputToKeys[K]) Get(inputID int) ([]K, error) {
	i.mu.Lock()
	if i.buffering {
		if i.deleted[inputID] {
			i.mu.Unlock()
			return nil, nil
		}
		if keys, ok := i.changes[inputID]; ok {
			i.mu.Unlock()
			return keys, nil
		}
	}
	i.mu.Unlock()

	keys, ok, err := i.pmap.Get(inputID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return keys, nil
}

// Set overwrites the keys recorded for inputID, buffered if buffering is
// on.
func (i *inputToKeys[K]) Set(inputID int, keys []K) error {
	i.mu.Lock()
	if i.buffering {
		delete(i.deleted, inputID)
		if len(keys) == 0 {
			i.deleted[inputID] = true
			delete(i.changes, inputID)
		} else {
			i.changes[inputID] = keys
		}
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	if len(keys) == 0 {
		return i.pmap.Delete(inputID)
	}
	return i.pmap.Set(inputID, keys)
}

// Delete removes inputID's entry entirely, buffered if buffering is on.
func (i *inputToKeys[K]) Delete(inputID int) error {
	i.mu.Lock()
	if i.buffering {
		delete(i.changes, inputID)
		i.deleted[inputID] = true
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()
	return i.pmap.Delete(inputID)
}

// Flush persists pending buffered changes to the durable map and clears
// the change map. It does not toggle buffering off.
func (i *inputToKeys[K]) Flush() error {
	i.mu.Lock()
	changes := i.changes
	deleted := i.deleted
	i.changes = make(map[int][]K)
	i.deleted = make(map[int]bool)
	i.mu.Unlock()

	for inputID := range deleted {
		if err := i.pmap.Delete(inputID); err != nil {
			return err
		}
	}
	for inputID, keys := range changes {
		if len(keys) == 0 {
			if err := i.pmap.Delete(inputID); err != nil {
				return err
			}
			continue
		}
		if err := i.pmap.Set(inputID, keys); err != nil {
			return err
		}
	}
	return i.pmap.Flush()
}

func (i *inputToKeys[K]) Dispose() error { return i.pmap.Dispose() }

// ProcessAll visits every (inputID, keys) pair in the merged view (durable
// map with buffered changes applied on top).
func (i *inputToKeys[K]) ProcessAll(visit func(int, []K) (bool, error)) error {
	i.mu.Lock()
	deleted := make(map[int]bool, len(i.deleted))
	for id := range i.deleted {
		deleted[id] = true
	}
	changes := make(map[int][]K, len(i.changes))
	for id, keys := range i.changes {
		changes[id] = keys
	}
	i.mu.Unlock()

	seen := make(map[int]bool, len(changes))
	stopped := false
	err := i.pmap.ProcessAll(func(id int, keys []K) (bool, error) {
		seen[id] = true
		if deleted[id] {
			return true, nil
		}
		if buffered, ok := changes[id]; ok {
			keys = buffered
		}
		cont, err := visit(id, keys)
		if !cont {
			stopped = true
		}
		return cont, err
	})
	if err != nil {
		return err
	}
	if stopped {
		return nil
	}

	for id, keys := range changes {
		if seen[id] {
			continue
		}
		cont, err := visit(id, keys)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// collectionCodec encodes a []K as a JSON array, the "Collection<K>"
// encoding spec.md §6 calls for.
type collectionCodec[K comparable] struct{}

func (collectionCodec[K]) EncodeValue(keys []K) ([]byte, error) { return json.Marshal(keys) }

func (collectionCodec[K]) DecodeValue(b []byte) ([]K, error) {
	var keys []K
	if err := json.Unmarshal(b, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
