package fileindex

import (
	"github.com/jpl-au/fileindex/internal/store"
)

// indexingStamps persists, per input file id, the last-indexed modification
// timestamp for each index, content-dependent or not, that has processed it. A
// file is "up to date" for an index when its stamp for that index id is
// not older than the file's current modification time.
type indexingStamps struct {
	pmap *store.PersistentMap[int, map[IndexId]int64]
}

func openIndexingStamps(root string) (*indexingStamps, error) {
	pmap, err := store.OpenPersistentMap[int, map[IndexId]int64](root, "indexing_stamps", store.IntCodec{}, store.JSONCodec[map[IndexId]int64]{}, store.Options{})
	if err != nil {
		return nil, err
	}
	return &indexingStamps{pmap: pmap}, nil
}

// Mark records that inputID was just indexed by id at modTime.
func (s *indexingStamps) Mark(inputID int, id IndexId, modTime int64) error {
	stamps, ok, err := s.pmap.Get(inputID)
	if err != nil {
		return err
	}
	if !ok || stamps == nil {
		stamps = make(map[IndexId]int64)
	}
	stamps[id] = modTime
	return s.pmap.Set(inputID, stamps)
}

// IsUpToDate reports whether inputID's stamp for id is at least as recent
// as modTime.
func (s *indexingStamps) IsUpToDate(inputID int, id IndexId, modTime int64) (bool, error) {
	stamps, ok, err := s.pmap.Get(inputID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	stamp, ok := stamps[id]
	if !ok {
		return false, nil
	}
	return stamp >= modTime, nil
}

// Forget drops every stamp for inputID, used when a file is deleted.
func (s *indexingStamps) Forget(inputID int) error {
	return s.pmap.Delete(inputID)
}

func (s *indexingStamps) Flush() error   { return s.pmap.Flush() }
func (s *indexingStamps) Dispose() error { return s.pmap.Dispose() }
