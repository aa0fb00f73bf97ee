package fileindex

import (
	"context"

	"github.com/jpl-au/fileindex/internal/store"
)

// IndexId names one registered index. It is an opaque token: the registry
// stores extensions behind a sync.Map keyed by IndexId, with the concrete
// K/V types recovered only inside the generic free functions (RegisterIndex,
// Lookup) that touch a given index, per spec.md §9's note that a
// heterogeneous typed collection needs an opaque token plus a runtime-typed
// map rather than a parameterized registry type.
type IndexId string

// KeyDescriptor encodes and decodes a key of type K for persistence, and
// supplies the hash algorithm input for the underlying PersistentMap.
type KeyDescriptor[K comparable] interface {
	store.KeyCodec[K]
}

// ValueExternalizer encodes and decodes a value of type V for persistence.
type ValueExternalizer[V any] interface {
	store.ValueCodec[V]
}

// Indexer extracts the key/value pairs for one input file's content.
type Indexer[K comparable, V any] interface {
	// Index returns every (key, value) pair content maps to. An empty
	// result map is valid: it means the file contributed nothing to this
	// index.
	Index(ctx context.Context, inputID int, content []byte) (map[K]V, error)
}

// InputFilter decides whether a file is relevant to an index before its
// content is read.
type InputFilter interface {
	AcceptsFile(path string) bool
}

// Extension is the full registration contract for one index. Go
// generalizes the spec's class-hierarchy-based FileBasedIndexExtension
// into a single generic struct of interface fields plus a couple of flags,
// the idiomatic substitute for an abstract base class with overridable
// hooks.
type Extension[K comparable, V any] struct {
	ID      IndexId
	Version int

	KeyDescriptor     KeyDescriptor[K]
	ValueExternalizer ValueExternalizer[V]
	Indexer           Indexer[K, V]
	Filter            InputFilter

	// DependsOnFileContent is false for indices that only need file
	// metadata (path, size, timestamp) rather than file bytes.
	DependsOnFileContent bool

	// CacheSize is a per-index read cache entry count. The registry does
	// not read it, and PersistentMap keeps no read cache.
	CacheSize int

	// FileTypesWithSizeLimitNotApplicable lists file extensions exempt
	// from a max-indexable-file-size cutoff. The registry does not read
	// it and applies no file-size cutoff.
	FileTypesWithSizeLimitNotApplicable []string
}
