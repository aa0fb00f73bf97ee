// Scan operations for finding records in the PersistentMap file.
//
// Binary search (scan) works on the sorted index section written by
// Repair. Linear search (sparse) works on the unsorted section appended
// since the last repair. scanm extracts only metadata for compaction
// without full JSON parsing. All three are carried over from the
// teacher's scan.go unchanged in approach — only "label" became "key".
package store

import (
	"bufio"
	"cmp"
	"io"
	"os"
)

// scan performs binary search on a sorted section for a record matching id
// and type. Returns nil if not found.
func scan(f *os.File, id string, start, end int64, recordType int) *Result {
	if start >= end {
		return nil
	}

	mid := (start + end) / 2

	var pivot *Result
	var pivotEnd int64

	newlinePos, _ := align(f, mid)
	if newlinePos >= 0 && newlinePos+1 < end {
		recordStart := newlinePos + 1
		data, err := line(f, recordStart)
		if err == nil && len(data) > 0 && valid(data) {
			if len(data) >= MinRecordSize && data[TypePos] == byte('0'+recordType) {
				rid := string(data[IDStart:IDEnd])
				pivot = &Result{recordStart, len(data), data, rid}
				pivotEnd = recordStart + int64(len(data)) + 1
			}
		}
	}

	if pivot == nil {
		pivot = scanBack(f, mid, start, recordType)
		if pivot != nil {
			pivotEnd = pivot.Offset + int64(pivot.Length) + 1
		}
	}

	if pivot == nil {
		return nil
	}

	if id == pivot.ID {
		return pivot
	}
	if id < pivot.ID {
		return scan(f, id, start, pivot.Offset, recordType)
	}
	return scan(f, id, pivotEnd, end, recordType)
}

// scanBack scans backwards from pos to find the first valid record of the
// given type.
func scanBack(f *os.File, pos, start int64, recordType int) *Result {
	for pos > start {
		pos--
		for pos > start {
			buf := make([]byte, 1)
			f.ReadAt(buf, pos)
			if buf[0] == '\n' {
				break
			}
			pos--
		}

		recordStart := pos + 1
		if pos == start {
			recordStart = start
		}

		data, err := line(f, recordStart)
		if err != nil || !valid(data) {
			continue
		}

		if len(data) >= MinRecordSize && data[TypePos] == byte('0'+recordType) {
			rid := string(data[IDStart:IDEnd])
			return &Result{recordStart, len(data), data, rid}
		}
	}
	return nil
}

// sparse performs linear scan for records matching id and type in an
// unsorted section. If id is empty, returns all records of the given type.
func sparse(f *os.File, id string, start, end int64, recordType int) []Result {
	var results []Result

	section := io.NewSectionReader(f, start, end-start)
	scanner := bufio.NewScanner(section)
	scanner.Buffer(make([]byte, 64*1024), MaxRecordSize)
	offset := start

	for scanner.Scan() {
		data := scanner.Bytes()
		length := len(data)

		if valid(data) {
			record, err := decode(data)
			if err == nil && record.Type == recordType {
				if id == "" || record.ID == id {
					dataCopy := make([]byte, length)
					copy(dataCopy, data)
					results = append(results, Result{offset, length, dataCopy, record.ID})
				}
			}
		}

		offset += int64(length) + 1
	}

	return results
}

// scanm performs a minimal scan extracting only metadata, without full
// JSON parsing. recordType=0 returns all types. Used by Repair.
func scanm(f *os.File, start, end int64, recordType int) []Entry {
	var entries []Entry

	section := io.NewSectionReader(f, start, end-start)
	scanner := bufio.NewScanner(section)
	scanner.Buffer(make([]byte, 64*1024), MaxRecordSize)
	offset := start

	for scanner.Scan() {
		ln := scanner.Bytes()
		length := len(ln)

		if valid(ln) && length >= MinRecordSize {
			t := int(ln[TypePos] - '0')
			if recordType == 0 || t == recordType {
				id := string(ln[IDStart:IDEnd])
				ts := parseTimestamp(ln)
				key := ""
				if t == TypeIndex {
					key = recordKey(ln)
				}
				entries = append(entries, Entry{id, ts, t, offset, 0, length, key})
			}
		}

		offset += int64(length) + 1
	}

	return entries
}

// parseTimestamp extracts _ts without a full JSON unmarshal. Falls back to
// zero on malformed input; the caller only uses the value to order
// versions within the same ID group, so a zero never changes which
// records are considered current.
func parseTimestamp(line []byte) int64 {
	const tag = `"_ts":`
	idx := indexOf(line, []byte(tag))
	if idx < 0 {
		return 0
	}
	idx += len(tag)
	var v int64
	for idx < len(line) && line[idx] >= '0' && line[idx] <= '9' {
		v = v*10 + int64(line[idx]-'0')
		idx++
	}
	return v
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// unpack separates entries into data and index slices for compaction.
func unpack(entries []Entry) (data, indexes []Entry) {
	for _, e := range entries {
		if e.Type == TypeIndex {
			indexes = append(indexes, e)
		} else {
			data = append(data, e)
		}
	}
	return data, indexes
}

// byIDThenTS orders entries by ID, then by timestamp (older first).
func byIDThenTS(a, b Entry) int {
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.TS, b.TS)
}

// byID orders entries by ID only.
func byID(a, b *Entry) int {
	return cmp.Compare(a.ID, b.ID)
}
