// Write operations for appending and modifying records.
//
// All write operations use the writer handle and track the tail offset.
// The dirty flag is set on first write and cleared on clean shutdown,
// mirroring the teacher's write.go.
package store

import (
	"io"

	json "github.com/goccy/go-json"
)

// raw writes raw bytes to end of file. Sets the dirty flag on first write.
func (s *rawStore) raw(payload []byte) (int64, error) {
	if s.header.Error == 0 {
		s.header.Error = 1
		dirty(s.writer, true)
	}

	offset := s.tail
	data := append(payload, '\n')
	if _, err := s.writer.WriteAt(data, offset); err != nil {
		return 0, err
	}
	s.tail += int64(len(data))

	if s.syncWrites {
		s.writer.Sync()
	}
	return offset, nil
}

// appendRecord marshals and writes a Record and its Index atomically: both
// lines are concatenated and written in a single syscall so a crash cannot
// observe one without the other.
func (s *rawStore) appendRecord(record *Record, idx *Index) (int64, error) {
	rData, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}

	dataOffset := s.tail
	idx.Offset = dataOffset

	iData, err := json.Marshal(idx)
	if err != nil {
		return 0, err
	}

	totalLen := len(rData) + 1 + len(iData) + 1
	combined := make([]byte, 0, totalLen)
	combined = append(combined, rData...)
	combined = append(combined, '\n')
	combined = append(combined, iData...)

	if _, err := s.raw(combined); err != nil {
		return 0, err
	}
	return dataOffset, nil
}

// writeAt overwrites bytes at a specific position. Does not affect tail.
func (s *rawStore) writeAt(offset int64, data []byte) error {
	if _, err := s.writer.WriteAt(data, offset); err != nil {
		return err
	}
	if s.syncWrites {
		s.writer.Sync()
	}
	return nil
}

// offsetWriter tracks write position for sequential writes during Repair.
type offsetWriter struct {
	w   io.WriterAt
	off int64
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.WriteAt(p, ow.off)
	ow.off += int64(n)
	return n, err
}
