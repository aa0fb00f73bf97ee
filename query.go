package fileindex

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// Drainer lets the registry force any collector-buffered file changes to
// be applied before a query runs, without the registry importing the
// collector package directly (it is handed one at wiring time via
// SetDrainer, e.g. by cmd/fileindex's serve command).
type Drainer interface {
	ForceUpdate(ctx context.Context) error
}

// SetDrainer installs the collector (or any Drainer) a query should drain
// against before reading index state.
func (r *Registry) SetDrainer(d Drainer) { r.drainer = d }

type reentrancyKey struct{}

// ensureUpToDate drains pending file updates (unless this goroutine is
// already inside an EnsureUpToDate call, in which case draining again
// would recurse) and then reports whether id is safe to query. The
// reentrancy flag travels on ctx rather than a thread-local map, since Go
// goroutines have no stable per-goroutine storage to key one on — the
// idiomatic substitute spec.md §9 calls for.
func (r *Registry) ensureUpToDate(ctx context.Context, id IndexId) (context.Context, error) {
	if r.closed.Load() {
		return ctx, ErrFatalShutdown
	}

	if ctx.Value(reentrancyKey{}) == nil && r.drainer != nil {
		ctx = context.WithValue(ctx, reentrancyKey{}, true)
		if err := r.drainer.ForceUpdate(ctx); err != nil {
			return ctx, err
		}
	}

	select {
	case <-ctx.Done():
		return ctx, ErrCancelled
	default:
	}

	if r.Status(id) == StatusRequiresRebuild {
		if err := r.checkRebuild(id); err != nil {
			return ctx, ErrNotReady
		}
	}

	switch r.Status(id) {
	case StatusRebuildInProgress:
		return ctx, ErrCancelled
	case StatusRequiresRebuild:
		return ctx, ErrNotReady
	default:
	}

	if err := r.unsaved.EnsureAllIndexed(ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// GetValues returns every distinct value stored for key in index id.
func GetValues[K comparable, V comparable](ctx context.Context, r *Registry, id IndexId, key K) ([]V, error) {
	ctx, err := r.ensureUpToDate(ctx, id)
	if err != nil {
		return nil, err
	}

	index, err := Lookup[K, V](r, id)
	if err != nil {
		return nil, err
	}

	container, err := index.GetData(key)
	if err != nil {
		log.Warn().Err(err).Str("index", string(id)).Msg("fileindex: query storage error, returning empty result")
		r.RequestRebuild(id)
		return nil, nil
	}
	if container == nil {
		return nil, nil
	}
	return container.Values(), nil
}

// GetContainingFiles returns every input file id that produced value for
// key in index id.
func GetContainingFiles[K comparable, V comparable](ctx context.Context, r *Registry, id IndexId, key K, value V) ([]int, error) {
	ctx, err := r.ensureUpToDate(ctx, id)
	if err != nil {
		return nil, err
	}

	index, err := Lookup[K, V](r, id)
	if err != nil {
		return nil, err
	}

	container, err := index.GetData(key)
	if err != nil {
		log.Warn().Err(err).Str("index", string(id)).Msg("fileindex: query storage error, returning empty result")
		r.RequestRebuild(id)
		return nil, nil
	}
	if container == nil {
		return nil, nil
	}
	return container.InputIDsFor(value), nil
}

// ProcessValues visits every (value, inputIDs) pair stored for key in
// index id. visit returns false to stop early.
func ProcessValues[K comparable, V comparable](ctx context.Context, r *Registry, id IndexId, key K, visit func(value V, inputIDs []int) bool) error {
	ctx, err := r.ensureUpToDate(ctx, id)
	if err != nil {
		return err
	}

	index, err := Lookup[K, V](r, id)
	if err != nil {
		return err
	}

	container, err := index.GetData(key)
	if err != nil {
		log.Warn().Err(err).Str("index", string(id)).Msg("fileindex: query storage error, returning empty result")
		r.RequestRebuild(id)
		return nil
	}
	if container == nil {
		return nil
	}
	container.ProcessValues(visit)
	return nil
}

// GetFilesWithKey returns every input file id that contributed anything
// at all under key, across every value.
func GetFilesWithKey[K comparable, V comparable](ctx context.Context, r *Registry, id IndexId, key K) ([]int, error) {
	ctx, err := r.ensureUpToDate(ctx, id)
	if err != nil {
		return nil, err
	}

	index, err := Lookup[K, V](r, id)
	if err != nil {
		return nil, err
	}

	container, err := index.GetData(key)
	if err != nil {
		log.Warn().Err(err).Str("index", string(id)).Msg("fileindex: query storage error, returning empty result")
		r.RequestRebuild(id)
		return nil, nil
	}
	if container == nil {
		return nil, nil
	}
	return container.AllInputIDs(), nil
}

// ProcessFilesContainingAllKeys returns the intersection of
// GetFilesWithKey across every key in keys. It starts from the key with
// the fewest matching files and intersects the rest in, narrowing the
// working set as early as possible rather than unioning everything and
// filtering at the end.
func ProcessFilesContainingAllKeys[K comparable, V comparable](ctx context.Context, r *Registry, id IndexId, keys []K) ([]int, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, err := r.ensureUpToDate(ctx, id)
	if err != nil {
		return nil, err
	}

	index, err := Lookup[K, V](r, id)
	if err != nil {
		return nil, err
	}

	sets := make([][]int, len(keys))
	for i, k := range keys {
		container, err := index.GetData(k)
		if err != nil {
			log.Warn().Err(err).Str("index", string(id)).Msg("fileindex: query storage error, returning empty result")
			r.RequestRebuild(id)
			return nil, nil
		}
		if container == nil {
			return nil, nil // one key has nothing: intersection is empty
		}
		sets[i] = container.AllInputIDs()
	}

	sort.Slice(sets, func(a, b int) bool { return len(sets[a]) < len(sets[b]) })

	current := toSet(sets[0])
	for _, s := range sets[1:] {
		next := make(map[int]struct{}, len(current))
		present := toSet(s)
		for id := range current {
			if _, ok := present[id]; ok {
				next[id] = struct{}{}
			}
		}
		current = next
		if len(current) == 0 {
			return nil, nil
		}
	}

	out := make([]int, 0, len(current))
	for id := range current {
		out = append(out, id)
	}
	return out, nil
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
