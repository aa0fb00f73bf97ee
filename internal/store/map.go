// PersistentMap is the generic, typed façade over rawStore: it encodes
// keys and values through a Codec pair, wraps them in the newline-safe
// ascii85/zstd envelope from compress.go, and hashes keys down to the
// store's 16 hex character ID via hash.go. Everything below this type is
// byte-shaped; everything above it is K/V-shaped.
package store

// PersistentMap is a durable K -> V map backed by a single append-only
// file on disk.
type PersistentMap[K any, V any] struct {
	raw        *rawStore
	keyCodec   KeyCodec[K]
	valueCodec ValueCodec[V]
}

// OpenPersistentMap opens or creates a PersistentMap at dir/name.
func OpenPersistentMap[K any, V any](dir, name string, keyCodec KeyCodec[K], valueCodec ValueCodec[V], opts Options) (*PersistentMap[K, V], error) {
	raw, err := openRawStore(dir, name, opts)
	if err != nil {
		return nil, err
	}
	return &PersistentMap[K, V]{raw: raw, keyCodec: keyCodec, valueCodec: valueCodec}, nil
}

// Get returns the value for k. The second return is false if k is absent.
func (m *PersistentMap[K, V]) Get(k K) (V, bool, error) {
	var zero V
	kb, err := m.keyCodec.EncodeKey(k)
	if err != nil {
		return zero, false, err
	}

	rec, err := m.raw.getByKey([]byte(encodeRaw(kb)))
	if err == ErrNotFound {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	vb, err := decodeValue(rec.Value)
	if err != nil {
		return zero, false, err
	}
	v, err := m.valueCodec.DecodeValue(vb)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set stores v for k, overwriting any previous value.
func (m *PersistentMap[K, V]) Set(k K, v V) error {
	kb, err := m.keyCodec.EncodeKey(k)
	if err != nil {
		return err
	}
	vb, err := m.valueCodec.EncodeValue(v)
	if err != nil {
		return err
	}
	return m.raw.setByKey([]byte(encodeRaw(kb)), []byte(encodeValue(vb)))
}

// Delete removes the entry for k. It is not an error if k is absent.
func (m *PersistentMap[K, V]) Delete(k K) error {
	kb, err := m.keyCodec.EncodeKey(k)
	if err != nil {
		return err
	}
	err = m.raw.deleteByKey([]byte(encodeRaw(kb)))
	if err == ErrNotFound {
		return nil
	}
	return err
}

// Contains reports whether k has a current entry, without decoding a value.
func (m *PersistentMap[K, V]) Contains(k K) (bool, error) {
	kb, err := m.keyCodec.EncodeKey(k)
	if err != nil {
		return false, err
	}
	_, err = m.raw.getByKey([]byte(encodeRaw(kb)))
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProcessAll visits every current entry in the map. visit returns false to
// stop early.
func (m *PersistentMap[K, V]) ProcessAll(visit func(K, V) (bool, error)) error {
	return m.raw.processAll(func(rec *Record) (bool, error) {
		kb, err := decodeRaw(rec.Key)
		if err != nil {
			return false, err
		}
		k, err := m.keyCodec.DecodeKey(kb)
		if err != nil {
			return false, err
		}
		vb, err := decodeValue(rec.Value)
		if err != nil {
			return false, err
		}
		v, err := m.valueCodec.DecodeValue(vb)
		if err != nil {
			return false, err
		}
		return visit(k, v)
	})
}

// Flush forces pending writes to stable storage.
func (m *PersistentMap[K, V]) Flush() error {
	return m.raw.writer.Sync()
}

// Compact reorganises the underlying file for faster lookups without
// discarding tombstoned history.
func (m *PersistentMap[K, V]) Compact() error {
	return m.raw.Compact()
}

// Purge reorganises the underlying file and permanently drops tombstoned
// records.
func (m *PersistentMap[K, V]) Purge() error {
	return m.raw.Purge()
}

// Dispose closes the map. The map must not be used afterwards.
func (m *PersistentMap[K, V]) Dispose() error {
	return m.raw.Close()
}
