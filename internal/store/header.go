// Header management for a PersistentMap file.
//
// The header is a fixed HeaderSize-byte line, padded with spaces and
// terminated with a newline. It records section offsets and a dirty flag
// used for crash recovery, following the teacher's document-store header
// exactly — only the file is generalized from one document format to an
// arbitrary K/V map.
package store

import (
	"bytes"
	"os"

	json "github.com/goccy/go-json"
)

// HeaderSize is the fixed size of the header in bytes.
const HeaderSize = 128

// Header contains PersistentMap metadata stored at the start of the file.
type Header struct {
	Version   int   `json:"_v"`   // format version, bumped on layout changes
	Error     int   `json:"_e"`   // 0=clean, 1=dirty (crash indicator)
	Timestamp int64 `json:"_ts"`  // unix milliseconds when written
	Data      int64 `json:"_d"`   // byte offset: end of data/tombstone section (heap)
	Index     int64 `json:"_i"`   // byte offset: end of the sorted index section
}

// readHeader reads and parses the header from a file.
func readHeader(f *os.File) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}

	var hdr Header
	if err := json.Unmarshal(bytes.TrimSpace(buf), &hdr); err != nil {
		return nil, ErrCorruptHeader
	}
	return &hdr, nil
}

// dirtyFieldOffset is the byte offset of the _e digit in an encoded
// header: {"_v":N,"_e":X — 13 bytes in, assuming a single-digit format
// version (format version 1 throughout this package). Patched in place so
// a write never needs to rewrite the whole header just to flip this bit.
const dirtyFieldOffset = 13

func dirty(w *os.File, v bool) error {
	b := byte('0')
	if v {
		b = '1'
	}
	_, err := w.WriteAt([]byte{b}, dirtyFieldOffset)
	return err
}

// encode serialises the header to exactly HeaderSize bytes with padding.
func (h *Header) encode() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	padLen := HeaderSize - len(data) - 1
	if padLen < 0 {
		return nil, ErrCorruptHeader // header too large
	}

	buf := make([]byte, HeaderSize)
	copy(buf, data)
	for i := len(data); i < HeaderSize-1; i++ {
		buf[i] = ' '
	}
	buf[HeaderSize-1] = '\n'

	return buf, nil
}
