// Core repair operation for store maintenance.
//
// Repair reorganises the file into a sorted data section followed by a
// sorted index section, so subsequent lookups can binary search instead of
// scanning. It doubles as crash recovery (opts.blockReaders blocks both
// readers and writers while it runs) and as the basis for Compact and
// Purge, generalized from the teacher's repair.go: the TypeHistory section
// is dropped since this store has no history concept, and Label becomes
// Key throughout.
package store

import (
	"maps"
	"os"
	"slices"

	json "github.com/goccy/go-json"
)

// repairOptions configures a repair pass.
type repairOptions struct {
	blockReaders  bool // true = block all operations (crash recovery)
	purgeTombstones bool // true = drop tombstoned records permanently
}

// repair reorganises the store file into sorted data and index sections.
// Callers must already hold s.lock in exclusive mode.
func (s *rawStore) repair(opts *repairOptions) error {
	if opts == nil {
		opts = &repairOptions{}
	}

	if opts.blockReaders {
		s.state.Store(StateNone)
	} else {
		s.state.Store(StateRead)
	}

	defer func() {
		s.cond.L.Lock()
		s.state.Store(StateAll)
		s.cond.Broadcast()
		s.cond.L.Unlock()
	}()

	tmp, err := s.root.Create(s.name + ".tmp")
	if err != nil {
		return err
	}

	if opts.blockReaders {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}

	info, _ := s.reader.Stat()
	entries := scanm(s.reader, HeaderSize, info.Size(), 0)

	var records, tombstones, indexes []Entry
	for _, e := range entries {
		switch e.Type {
		case TypeRecord:
			records = append(records, e)
		case TypeTombstone:
			if !opts.purgeTombstones {
				tombstones = append(tombstones, e)
			}
		case TypeIndex:
			indexes = append(indexes, e)
		}
	}

	slices.SortFunc(records, byIDThenTS)
	slices.SortFunc(tombstones, byIDThenTS)

	indexMap := map[string]*Entry{}
	for i := range indexes {
		indexMap[indexes[i].ID] = &indexes[i]
	}

	tmp.Write(make([]byte, HeaderSize))
	ow := &offsetWriter{w: tmp, off: HeaderSize}

	for i := range records {
		entry := &records[i]
		rec, _ := line(s.reader, entry.SrcOff)

		entry.DstOff = ow.off
		ow.Write(rec)
		ow.Write([]byte{'\n'})

		if idx, ok := indexMap[entry.ID]; ok {
			idx.DstOff = entry.DstOff
		}
	}

	for i := range tombstones {
		entry := &tombstones[i]
		rec, _ := line(s.reader, entry.SrcOff)
		entry.DstOff = ow.off
		ow.Write(rec)
		ow.Write([]byte{'\n'})
	}

	dataEnd := ow.off

	sorted := slices.SortedFunc(maps.Values(indexMap), byID)
	for _, idx := range sorted {
		indexRecord, _ := json.Marshal(Index{
			Type:      TypeIndex,
			ID:        idx.ID,
			Offset:    idx.DstOff,
			Key:       idx.Key,
			Timestamp: now(),
		})
		ow.Write(indexRecord)
		ow.Write([]byte{'\n'})
	}

	indexEnd := ow.off

	hdr := Header{
		Version:   1,
		Timestamp: now(),
		Data:      dataEnd,
		Index:     indexEnd,
		Error:     0,
	}
	hdrBytes, _ := hdr.encode()
	tmp.WriteAt(hdrBytes, 0)
	tmp.Sync()
	tmp.Close()

	if !opts.blockReaders {
		s.mu.RUnlock()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	s.reader.Close()
	s.writer.Close()
	s.root.Rename(s.name+".tmp", s.name)
	s.reader, _ = s.root.OpenFile(s.name, os.O_RDONLY, 0644)
	s.writer, _ = s.root.OpenFile(s.name, os.O_RDWR, 0644)
	s.lock.setFile(s.writer)
	s.header, _ = readHeader(s.reader)
	s.tail = indexEnd

	if s.bloom != nil {
		s.bloom.Reset()
		for _, idx := range sorted {
			s.bloom.Add(idx.ID)
		}
	}

	return nil
}

// Compact reorganises the store for efficient lookup, keeping tombstones
// around (so History-equivalent callers could still inspect them, though
// this store does not expose one).
func (s *rawStore) Compact() error {
	if err := s.lock.Lock(LockExclusive); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return s.repair(&repairOptions{})
}

// Purge reorganises the store and permanently drops tombstoned records.
func (s *rawStore) Purge() error {
	if err := s.lock.Lock(LockExclusive); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return s.repair(&repairOptions{purgeTombstones: true})
}
