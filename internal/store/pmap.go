// Core on-disk map type and lifecycle operations.
//
// rawStore is the byte-level engine: it knows nothing about K or V, only
// about encoded key/value byte strings and their 16-hex-character IDs. It
// is generalized directly from the teacher's DB type (db.go) — the state
// machine for open/close/lock/repair/compact is unchanged, only the
// document-shaped CRUD operations (Get/Set/Delete on a "label") are
// replaced with ID-keyed ones driven by a caller-supplied hash.
//
// PersistentMap[K, V] wraps rawStore with KeyCodec[K] and ValueCodec[V] so callers
// work in terms of real Go values; see codec.go.
package store

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// State constants for concurrency control, identical in meaning to the
// teacher's StateAll/StateRead/StateNone/StateClosed.
const (
	StateAll    = 0 // readers and writers allowed
	StateRead   = 1 // only readers allowed (during compaction)
	StateNone   = 2 // nothing allowed (during rehash-equivalent maintenance)
	StateClosed = 3 // store closed
)

// Options configures a rawStore.
type Options struct {
	ReadBuffer    int  // buffer size for reading (default 64KB)
	MaxRecordSize int  // maximum single record size (default MaxRecordSize)
	SyncWrites    bool // call fsync after writes
	HashAlgorithm int  // AlgXXHash3 (default), AlgFNV1a, or AlgBlake2b
}

// rawStore is an open PersistentMap file.
type rawStore struct {
	root       *os.Root
	name       string
	reader     *os.File
	writer     *os.File
	lock       *fileLock
	header     *Header
	syncWrites bool
	readBuffer int
	tail       int64
	hashAlg    int
	state      atomic.Int32
	cond       *sync.Cond
	mu         sync.RWMutex
	bloom      *bloom
}

// idFor hashes encoded key bytes down to the store's 16 hex character ID.
func (s *rawStore) idFor(keyEncoded []byte) string {
	return hashID(keyEncoded, s.hashAlg)
}

// openRawStore opens or creates a PersistentMap file under dir/name.
func openRawStore(dir, name string, opts Options) (*rawStore, error) {
	if opts.ReadBuffer == 0 {
		opts.ReadBuffer = 64 * 1024
	}
	if opts.MaxRecordSize == 0 {
		opts.MaxRecordSize = MaxRecordSize
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}

	if _, err := root.Stat(name); os.IsNotExist(err) {
		file, err := root.Create(name)
		if err != nil {
			root.Close()
			return nil, err
		}
		hdr := Header{Version: 1, Timestamp: now(), Data: 0, Index: 0}
		buf, _ := hdr.encode()
		file.Write(buf)
		file.Sync()
		file.Close()
	}

	reader, err := root.OpenFile(name, os.O_RDONLY, 0644)
	if err != nil {
		root.Close()
		return nil, err
	}

	writer, err := root.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		reader.Close()
		root.Close()
		return nil, err
	}

	flock := &fileLock{f: writer}

	info, _ := writer.Stat()
	hdr, err := readHeader(reader)
	if err != nil {
		reader.Close()
		writer.Close()
		root.Close()
		return nil, err
	}

	s := &rawStore{
		root:       root,
		name:       name,
		reader:     reader,
		writer:     writer,
		lock:       flock,
		header:     hdr,
		syncWrites: opts.SyncWrites,
		readBuffer: opts.ReadBuffer,
		tail:       info.Size(),
		hashAlg:    opts.HashAlgorithm,
		cond:       sync.NewCond(&sync.Mutex{}),
		bloom:      newBloom(),
	}
	if s.hashAlg == 0 {
		s.hashAlg = AlgXXHash3
	}

	_, tmpErr := root.Stat(name + ".tmp")
	tmpExists := tmpErr == nil
	needsRepair := tmpExists || s.header.Error == 1

	if needsRepair {
		if tmpExists {
			root.Remove(name + ".tmp")
		}
		if err := s.lock.Lock(LockExclusive); err == nil {
			defer s.lock.Unlock()
			s.repair(&repairOptions{blockReaders: true})
		}
	} else {
		s.rebuildBloom()
	}

	return s, nil
}

// rebuildBloom scans existing index entries into the bloom filter. Called
// once on open; kept up to date incrementally afterwards.
func (s *rawStore) rebuildBloom() {
	sz := size(s.reader)
	entries := scanm(s.reader, HeaderSize, sz, TypeIndex)
	for _, e := range entries {
		s.bloom.Add(e.ID)
	}
}

// Close closes the store and releases resources.
func (s *rawStore) Close() error {
	s.cond.L.Lock()
	s.state.Store(StateClosed)
	s.cond.Broadcast()
	s.cond.L.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		s.lock.Unlock()
	}

	if s.header.Error == 1 {
		s.header.Error = 0
		dirty(s.writer, false)
		s.writer.Sync()
	}

	var errs []error
	if err := s.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.root.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Section boundary helpers.

func (s *rawStore) indexStart() int64 { return s.header.Data }
func (s *rawStore) indexEnd() int64   { return s.header.Index }
func (s *rawStore) sparseStart() int64 {
	if s.header.Index == 0 {
		return HeaderSize
	}
	return s.header.Index
}

// Blocking methods for concurrency control, unchanged from the teacher.

func (s *rawStore) blockWrite() error {
	if s.state.Load() == StateClosed {
		return ErrClosed
	}
	if err := s.lock.Lock(LockExclusive); err != nil {
		return err
	}
	s.cond.L.Lock()
	for s.state.Load() != StateAll {
		if s.state.Load() == StateClosed {
			s.cond.L.Unlock()
			s.lock.Unlock()
			return ErrClosed
		}
		s.cond.Wait()
	}
	s.mu.Lock()
	s.cond.L.Unlock()
	return nil
}

func (s *rawStore) blockRead() error {
	if s.state.Load() == StateClosed {
		return ErrClosed
	}
	if err := s.lock.Lock(LockShared); err != nil {
		return err
	}
	s.cond.L.Lock()
	for s.state.Load() == StateNone || s.state.Load() == StateClosed {
		if s.state.Load() == StateClosed {
			s.cond.L.Unlock()
			s.lock.Unlock()
			return ErrClosed
		}
		s.cond.Wait()
	}
	s.mu.RLock()
	s.cond.L.Unlock()
	return nil
}

// get locates the current record for id, returning its raw Record.
func (s *rawStore) get(id string) (*Record, error) {
	if err := s.blockRead(); err != nil {
		return nil, err
	}
	defer func() {
		s.mu.RUnlock()
		s.lock.Unlock()
	}()
	return s.getLocked(id)
}

func (s *rawStore) getLocked(id string) (*Record, error) {
	if s.bloom != nil && !s.bloom.Contains(id) {
		return nil, ErrNotFound
	}

	if result := scan(s.reader, id, s.indexStart(), s.indexEnd(), TypeIndex); result != nil {
		idx, err := decodeIndex(result.Data)
		if err != nil {
			return nil, err
		}
		content, err := line(s.reader, idx.Offset)
		if err != nil {
			return nil, err
		}
		return decode(content)
	}

	results := sparse(s.reader, id, s.sparseStart(), size(s.reader), TypeIndex)
	for i := len(results) - 1; i >= 0; i-- {
		idx, err := decodeIndex(results[i].Data)
		if err != nil {
			return nil, err
		}
		if idx.ID == id {
			content, err := line(s.reader, idx.Offset)
			if err != nil {
				return nil, err
			}
			return decode(content)
		}
	}

	return nil, ErrNotFound
}

// findIndex locates the current index record for id. Returns (nil, nil,
// nil) when absent.
func (s *rawStore) findIndex(id string, sz int64) (*Result, *Index, error) {
	if result := scan(s.reader, id, s.indexStart(), s.indexEnd(), TypeIndex); result != nil {
		idx, err := decodeIndex(result.Data)
		if err != nil {
			return nil, nil, err
		}
		return result, idx, nil
	}

	results := sparse(s.reader, id, s.sparseStart(), sz, TypeIndex)
	for i := len(results) - 1; i >= 0; i-- {
		idx, err := decodeIndex(results[i].Data)
		if err != nil {
			return nil, nil, err
		}
		if idx.ID == id {
			r := results[i]
			return &r, idx, nil
		}
	}
	return nil, nil, nil
}

// set writes or overwrites id/key/value, retiring any previous record.
func (s *rawStore) set(id string, keyEncoded, valueEncoded []byte) error {
	if err := s.blockWrite(); err != nil {
		return err
	}
	defer func() {
		s.mu.Unlock()
		s.lock.Unlock()
	}()
	return s.setLocked(id, keyEncoded, valueEncoded)
}

func (s *rawStore) setLocked(id string, keyEncoded, valueEncoded []byte) error {
	if len(keyEncoded) > MaxKeySize {
		return ErrKeyTooLarge
	}

	sz := size(s.reader)
	idxResult, _, err := s.findIndex(id, sz)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	ts := now()
	newRecord := &Record{Type: TypeRecord, ID: id, Timestamp: ts, Key: string(keyEncoded), Value: string(valueEncoded)}
	newIndex := &Index{Type: TypeIndex, ID: id, Timestamp: ts, Key: string(keyEncoded)}

	if _, err := s.appendRecord(newRecord, newIndex); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if s.bloom != nil {
		s.bloom.Add(id)
	}

	if idxResult != nil {
		if err := s.retire(idxResult); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	return nil
}

// retire blanks a superseded index line and retypes its data record to a
// tombstone, mirroring the teacher's blank-and-retype pattern in set.go.
func (s *rawStore) retire(idxResult *Result) error {
	idx, err := decodeIndex(idxResult.Data)
	if err != nil {
		return err
	}
	// Retype the data record 2 -> 3.
	if err := s.writeAt(idx.Offset+TypePos, []byte{'0' + TypeTombstone}); err != nil {
		return err
	}
	// Blank the old index line so scans never see it again.
	return s.writeAt(idxResult.Offset, spaces(idxResult.Length))
}

func spaces(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return b
}

// delete tombstones id. Returns ErrNotFound if absent.
func (s *rawStore) delete(id string) error {
	if err := s.blockWrite(); err != nil {
		return err
	}
	defer func() {
		s.mu.Unlock()
		s.lock.Unlock()
	}()

	sz := size(s.reader)
	idxResult, _, err := s.findIndex(id, sz)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if idxResult == nil {
		return ErrNotFound
	}
	return s.retire(idxResult)
}

// getByKey looks up a record by its encoded key, hashing it to an ID first.
func (s *rawStore) getByKey(keyEncoded []byte) (*Record, error) {
	return s.get(s.idFor(keyEncoded))
}

// setByKey writes or overwrites the record for an encoded key.
func (s *rawStore) setByKey(keyEncoded, valueEncoded []byte) error {
	return s.set(s.idFor(keyEncoded), keyEncoded, valueEncoded)
}

// deleteByKey tombstones the record for an encoded key.
func (s *rawStore) deleteByKey(keyEncoded []byte) error {
	return s.delete(s.idFor(keyEncoded))
}

// processAll visits every current (non-tombstoned) record.
func (s *rawStore) processAll(visit func(*Record) (bool, error)) error {
	if err := s.blockRead(); err != nil {
		return err
	}
	defer func() {
		s.mu.RUnlock()
		s.lock.Unlock()
	}()

	sz := size(s.reader)
	seen := make(map[string]bool)

	scanRegion := func(start, end int64) (bool, error) {
		if start >= end {
			return true, nil
		}
		results := sparse(s.reader, "", start, end, TypeRecord)
		for _, r := range results {
			rec, err := decode(r.Data)
			if err != nil {
				return false, err
			}
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			cont, err := visit(rec)
			if err != nil {
				return false, err
			}
			if !cont {
				return false, nil
			}
		}
		return true, nil
	}

	if cont, err := scanRegion(HeaderSize, s.indexStart()); err != nil || !cont {
		return err
	}
	if _, err := scanRegion(s.sparseStart(), sz); err != nil {
		return err
	}
	return nil
}
