package fileindex

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jpl-au/fileindex/internal/store"

	"github.com/rs/zerolog/log"
)

// RebuildStatus is the per-index state spec.md §4.4 drives queries off.
type RebuildStatus int32

const (
	StatusOK RebuildStatus = iota
	StatusRequiresRebuild
	StatusRebuildInProgress
)

func (s RebuildStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRequiresRebuild:
		return "REQUIRES_REBUILD"
	case StatusRebuildInProgress:
		return "REBUILD_IN_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// indexHandle is the narrow, non-generic view of an updatableIndex that
// the registry needs for lifecycle management and the collector's update
// path. Generalizes spec.md §9's "heterogeneous typed indices" into a
// runtime-typed map of these handles, keyed by the opaque IndexId token;
// the concrete K/V types only resurface inside the generic free functions
// (RegisterIndex, Lookup) that a caller invokes with its own K/V in hand.
type indexHandle interface {
	ID() IndexId
	Update(ctx context.Context, inputID int, content []byte) error
	RemoveInput(inputID int) error
	SetBuffering(bool)
	Flush() error
	Clear() error
	Dispose() error
	DependsOnFileContent() bool
}

// indexHandleImpl adapts *updatableIndex[K,V] plus its Indexer to the
// non-generic indexHandle interface.
type indexHandleImpl[K comparable, V comparable] struct {
	index      *updatableIndex[K, V]
	indexer    Indexer[K, V]
	dependsOn  bool
}

func (h *indexHandleImpl[K, V]) ID() IndexId { return h.index.ID() }

func (h *indexHandleImpl[K, V]) Update(ctx context.Context, inputID int, content []byte) error {
	return h.index.Update(ctx, inputID, content, h.indexer)
}

func (h *indexHandleImpl[K, V]) RemoveInput(inputID int) error { return h.index.RemoveInput(inputID) }
func (h *indexHandleImpl[K, V]) SetBuffering(on bool)          { h.index.SetBuffering(on) }
func (h *indexHandleImpl[K, V]) Flush() error                  { return h.index.Flush() }
func (h *indexHandleImpl[K, V]) Clear() error                  { return h.index.Clear() }
func (h *indexHandleImpl[K, V]) Dispose() error                { return h.index.Dispose() }
func (h *indexHandleImpl[K, V]) DependsOnFileContent() bool    { return h.dependsOn }

// Registry owns every registered index, its rebuild status, and the
// versioned on-disk layout beneath root. It is the sole owner of
// VersionedStore and of every updatableIndex, per spec.md §4.4.
type Registry struct {
	root   string
	vstore *store.VersionedStore
	wip    *store.WorkInProgressMarker
	bus    *eventBus
	stamps *indexingStamps
	drainer Drainer
	unsaved *UnsavedDocumentsOverlay

	mu       sync.Mutex // guards registeredNames only
	registeredNames []string

	typed   sync.Map // IndexId -> any (*updatableIndex[K,V]), for Lookup[K,V]
	handles sync.Map // IndexId -> indexHandle
	status  sync.Map // IndexId -> *atomic.Int32

	// dirtyStart is true when the WorkInProgressMarker from a previous
	// run was still present at NewRegistry; every index registered
	// afterwards starts at REQUIRES_REBUILD regardless of its own
	// on-disk outcome.
	dirtyStart bool

	closed atomic.Bool
}

// NewRegistry opens a Registry rooted at dir, creating it if absent. If
// the WorkInProgressMarker from a previous run is still present, every
// subsequently registered index is forced into REQUIRES_REBUILD, exactly
// like corruption detected mid-run (spec.md §3 Open Question, resolved
// conservatively).
func NewRegistry(dir string) (*Registry, error) {
	vstore, err := store.NewVersionedStore(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	wip := store.NewWorkInProgressMarker(dir)
	dirtyStart := wip.Present()
	if err := wip.Create(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if dirtyStart {
		log.Warn().Str("root", dir).Msg("fileindex: work-in-progress marker present at startup, every index forced to rebuild")
	}

	stamps, err := openIndexingStamps(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	r := &Registry{root: dir, vstore: vstore, wip: wip, bus: newEventBus(), stamps: stamps, dirtyStart: dirtyStart}
	r.unsaved = NewUnsavedDocumentsOverlay(r)
	return r, nil
}

// UnsavedDocuments returns the registry's own UnsavedDocumentsOverlay. It
// is wired into ensureUpToDate, so a document begun here is transparently
// applied before every query rather than requiring the caller to call
// EnsureIndexed by hand.
func (r *Registry) UnsavedDocuments() *UnsavedDocumentsOverlay { return r.unsaved }

// RegisterIndex registers an extension, opening or rebuilding its on-disk
// layout as VersionedStore.RegisterIndex determines, and returns the
// resulting Outcome. It is a free function, not a method, because Go
// forbids a method from introducing new type parameters beyond its
// receiver's.
func RegisterIndex[K comparable, V comparable](r *Registry, ext Extension[K, V]) (store.Outcome, error) {
	if r.closed.Load() {
		return 0, ErrFatalShutdown
	}

	outcome, err := r.vstore.RegisterIndex(string(ext.ID), ext.Version, r.dirtyStart)
	if err != nil {
		return 0, fmt.Errorf("%w: register %s: %v", ErrStorage, ext.ID, err)
	}

	index, err := openUpdatableIndex[K, V](r.root, ext.ID, ext.KeyDescriptor, r.bus)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrStorage, ext.ID, err)
	}

	handle := &indexHandleImpl[K, V]{index: index, indexer: ext.Indexer, dependsOn: ext.DependsOnFileContent}

	r.typed.Store(ext.ID, index)
	r.handles.Store(ext.ID, handle)

	status := &atomic.Int32{}
	switch outcome {
	case store.Fresh, store.Rebuilt:
		status.Store(int32(StatusRequiresRebuild))
	default:
		status.Store(int32(StatusOK))
	}
	r.status.Store(ext.ID, status)

	r.mu.Lock()
	r.registeredNames = append(r.registeredNames, string(ext.ID))
	names := append([]string(nil), r.registeredNames...)
	r.mu.Unlock()

	if err := r.vstore.SyncRegisteredNames(names); err != nil {
		log.Warn().Err(err).Str("index", string(ext.ID)).Msg("fileindex: failed to sync registered index names sidecar")
	}

	r.publishStatus(ext.ID, RebuildStatus(status.Load()))
	return outcome, nil
}

// Lookup recovers the concrete *updatableIndex[K,V] for id, failing if no
// extension registered id or if it was registered with different K/V
// types.
func Lookup[K comparable, V comparable](r *Registry, id IndexId) (*updatableIndex[K, V], error) {
	v, ok := r.typed.Load(id)
	if !ok {
		return nil, ErrUnknownIndex
	}
	index, ok := v.(*updatableIndex[K, V])
	if !ok {
		return nil, fmt.Errorf("%w: %s registered with a different key/value type", ErrUnknownIndex, id)
	}
	return index, nil
}

// Status returns id's current RebuildStatus.
func (r *Registry) Status(id IndexId) RebuildStatus {
	v, ok := r.status.Load(id)
	if !ok {
		return StatusRequiresRebuild
	}
	return RebuildStatus(v.(*atomic.Int32).Load())
}

// RequestRebuild flags id for rebuild without performing one, for callers
// that only want to signal "this index's content is stale" and let a
// background pass pick it up.
func (r *Registry) RequestRebuild(id IndexId) {
	r.setStatus(id, StatusRequiresRebuild)
	r.bus.publishRebuildRequested(id)
}

// ScheduleIndexRebuild runs rebuildFn with id marked REBUILD_IN_PROGRESS,
// so concurrent queries observe Cancelled rather than stale data, and
// lands on OK or REQUIRES_REBUILD depending on the outcome.
func (r *Registry) ScheduleIndexRebuild(ctx context.Context, id IndexId, rebuildFn func(context.Context) error) error {
	r.setStatus(id, StatusRebuildInProgress)

	handle, ok := r.handles.Load(id)
	if ok {
		if err := handle.(indexHandle).Clear(); err != nil {
			r.setStatus(id, StatusRequiresRebuild)
			return fmt.Errorf("%w: clear before rebuild: %v", ErrStorage, err)
		}
	}

	if err := rebuildFn(ctx); err != nil {
		r.setStatus(id, StatusRequiresRebuild)
		return err
	}

	r.setStatus(id, StatusOK)
	return nil
}

// checkRebuild is ensureUpToDate's self-healing step (spec.md §4.4/§4.6):
// a single winner CASes id from REQUIRES_REBUILD to REBUILD_IN_PROGRESS,
// clears its stale data, and lands on OK, so a transient storage error
// that previously tripped RequestRebuild does not leave every future
// query returning ErrNotReady forever. Callers that lose the CAS (the
// index was already OK, already being rebuilt by someone else, or
// unregistered) simply observe whatever status is current.
func (r *Registry) checkRebuild(id IndexId) error {
	v, ok := r.status.Load(id)
	if !ok {
		return nil
	}
	status := v.(*atomic.Int32)
	if !status.CompareAndSwap(int32(StatusRequiresRebuild), int32(StatusRebuildInProgress)) {
		return nil
	}
	r.publishStatus(id, StatusRebuildInProgress)

	handle, ok := r.handles.Load(id)
	if !ok {
		status.Store(int32(StatusOK))
		r.publishStatus(id, StatusOK)
		return nil
	}

	if err := handle.(indexHandle).Clear(); err != nil {
		status.Store(int32(StatusRequiresRebuild))
		r.publishStatus(id, StatusRequiresRebuild)
		return fmt.Errorf("%w: checkRebuild: %v", ErrStorage, err)
	}

	status.Store(int32(StatusOK))
	r.publishStatus(id, StatusOK)
	return nil
}

func (r *Registry) setStatus(id IndexId, s RebuildStatus) {
	v, ok := r.status.Load(id)
	var a *atomic.Int32
	if ok {
		a = v.(*atomic.Int32)
	} else {
		a = &atomic.Int32{}
		r.status.Store(id, a)
	}
	a.Store(int32(s))
	r.publishStatus(id, s)
}

func (r *Registry) publishStatus(id IndexId, s RebuildStatus) {
	if r.bus != nil {
		r.bus.publishStatusChanged(id, s)
	}
}

// UpdateSingleIndex is the narrow, synchronous entry point the collector
// reaches through collectorUpdater instead of holding a pointer back into
// the registry's internals (spec.md §9's redesign note against a
// collector<->registry pointer cycle; see §4.10).

// ScheduleForUpdate publishes a write-action-started event on the bus. It
// records nothing about inputID, and the collector does not call it: the
// collector keeps its own queue of pending files.
func (r *Registry) ScheduleForUpdate(inputID int) {
	r.bus.publishWriteActionStarted()
}

// UpdateSingleIndex runs one index's Update against inputID/content and
// records modTime as the file's new IndexingStamp for id on success.
// StorageError from the underlying maps is logged and escalates the
// index to REQUIRES_REBUILD rather than propagating to the caller, per
// spec.md §7.
func (r *Registry) UpdateSingleIndex(ctx context.Context, id IndexId, inputID int, content []byte, modTime int64) error {
	v, ok := r.handles.Load(id)
	if !ok {
		return ErrUnknownIndex
	}
	handle := v.(indexHandle)

	if err := handle.Update(ctx, inputID, content); err != nil {
		log.Warn().Err(err).Str("index", string(id)).Int("inputID", inputID).Msg("fileindex: update failed, scheduling rebuild")
		r.RequestRebuild(id)
		return nil
	}

	if err := r.stamps.Mark(inputID, id, modTime); err != nil {
		log.Warn().Err(err).Str("index", string(id)).Int("inputID", inputID).Msg("fileindex: failed to record indexing stamp")
	}
	return nil
}

// RemoveInput retracts inputID from every registered index, used when a
// file is deleted.
func (r *Registry) RemoveInput(inputID int) {
	r.handles.Range(func(_, v any) bool {
		handle := v.(indexHandle)
		if err := handle.RemoveInput(inputID); err != nil {
			log.Warn().Err(err).Str("index", string(handle.ID())).Int("inputID", inputID).Msg("fileindex: remove-input failed, scheduling rebuild")
			r.RequestRebuild(handle.ID())
		}
		return true
	})
}

// RegisteredIndexIDs returns every index id currently registered, for
// admin surfaces like cmd/fileindex's stats command that need to iterate
// indices without knowing their K/V types.
func (r *Registry) RegisteredIndexIDs() []IndexId {
	var out []IndexId
	r.handles.Range(func(k, v any) bool {
		out = append(out, k.(IndexId))
		return true
	})
	return out
}

// ContentDependentIndices returns the ids of every registered index whose
// extension declared DependsOnFileContent.
func (r *Registry) ContentDependentIndices() []IndexId {
	var out []IndexId
	r.handles.Range(func(k, v any) bool {
		if v.(indexHandle).DependsOnFileContent() {
			out = append(out, k.(IndexId))
		}
		return true
	})
	return out
}

// ContentlessIndices returns the ids of every registered index whose
// extension did not declare DependsOnFileContent.
func (r *Registry) ContentlessIndices() []IndexId {
	var out []IndexId
	r.handles.Range(func(k, v any) bool {
		if !v.(indexHandle).DependsOnFileContent() {
			out = append(out, k.(IndexId))
		}
		return true
	})
	return out
}

// Flush flushes every registered index.
func (r *Registry) Flush() error {
	var first error
	r.handles.Range(func(_, v any) bool {
		if err := v.(indexHandle).Flush(); err != nil && first == nil {
			first = err
		}
		return true
	})
	return first
}

// Dispose flushes and closes every registered index, then clears the
// WorkInProgressMarker to signal a clean shutdown.
func (r *Registry) Dispose() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var first error
	r.handles.Range(func(_, v any) bool {
		handle := v.(indexHandle)
		if err := handle.Flush(); err != nil && first == nil {
			first = err
		}
		if err := handle.Dispose(); err != nil && first == nil {
			first = err
		}
		return true
	})

	if err := r.stamps.Flush(); err != nil && first == nil {
		first = err
	}
	if err := r.stamps.Dispose(); err != nil && first == nil {
		first = err
	}
	if err := r.wip.Clear(); err != nil && first == nil {
		first = err
	}
	return first
}
