// Record format and type definitions.
//
// Every line in a PersistentMap file is a JSON object beginning with
// {"idx":N where N identifies the record type. This fixed prefix lets scan
// and scanm classify a line and read its ID at known byte offsets without a
// full JSON parse — the same trick the line-delimited format has always
// relied on for binary search and compaction over millions of records.
//
// Two logical entities coexist in the file:
//   - Index (idx=1): maps a key's hash to the byte offset of its Record.
//   - Record (idx=2/3): the current (2) or tombstoned (3) key/value pair.
//
// On Delete, the Record is retyped from 2 to 3 in place (a single byte
// patch) and its Index line blanked; the Record keeps its value bytes. This
// mirrors how the teacher's document store retires a superseded version. The
// difference here is there is no
// history type to preserve: a tombstone's only purpose is to make the key
// invisible to scans until compaction drops it for good.
package store

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Record type markers, appearing as the first value in every JSON line
// ({"idx":N) at the fixed TypePos byte offset.
const (
	TypeIndex     = 1
	TypeRecord    = 2
	TypeTombstone = 3
)

// MaxKeySize bounds the ascii85-encoded key field, in bytes.
const MaxKeySize = 4096

// MaxRecordSize bounds the scanner buffer allocation for a single line.
const MaxRecordSize = 32 * 1024 * 1024

// TypePos, IDStart and IDEnd are the fixed byte offsets of the type digit
// and the 16 hex character ID within any record or index line, given the
// field order declared on Record/Index below. scan.go relies on these to
// classify and compare lines without parsing JSON.
const (
	TypePos  = 7
	IDStart  = 16
	IDEnd    = 32
	idHexLen = IDEnd - IDStart
)

// MinRecordSize is the shortest valid JSON line: idx, _id and _ts are
// mandatory on every record and index line.
const MinRecordSize = 40

// Record is a data or tombstone line: a key/value pair plus bookkeeping.
type Record struct {
	Type      int    `json:"idx"`
	ID        string `json:"_id"` // 16 hex chars, hash of the encoded key
	Timestamp int64  `json:"_ts"` // unix ms
	Key       string `json:"_k"`  // ascii85-encoded key bytes
	Value     string `json:"_v"`  // encoded value bytes, kept when the record is tombstoned
}

// Index maps a key's hashed ID to the byte offset of its Record. Lookup
// finds the Index first (by binary or sparse scan on ID), then reads the
// Record at the offset it points to.
type Index struct {
	Type      int    `json:"idx"`
	ID        string `json:"_id"`
	Timestamp int64  `json:"_ts"`
	Offset    int64  `json:"_o"`
	Key       string `json:"_k"`
}

// Result carries a record's position and raw bytes from a scan.
type Result struct {
	Offset int64
	Length int
	Data   []byte
	ID     string
}

// Entry holds lightweight metadata extracted by scanm, without full JSON
// parsing. DstOff is zero until Repair fills it with the new position.
type Entry struct {
	ID     string
	TS     int64
	Type   int
	SrcOff int64
	DstOff int64
	Length int
	Key    string // populated only for index entries
}

// decode performs full JSON parsing of a record line.
func decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, ErrCorruptRecord
	}
	return &r, nil
}

// decodeIndex performs full JSON parsing of an index line.
func decodeIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, ErrCorruptIndex
	}
	return &idx, nil
}

// valid is a fast pre-check: blanked records and the header start with
// spaces, so only lines starting with '{' can be JSON records.
func valid(line []byte) bool {
	return len(line) > 0 && line[0] == '{'
}

// recordKey extracts the _k value by string scanning, avoiding a full JSON
// parse. Used in hot paths (compaction) where only the key is needed.
func recordKey(line []byte) string {
	s := string(line)
	start := strings.Index(s, `"_k":"`)
	if start == -1 {
		return ""
	}
	start += 6
	end := strings.Index(s[start:], `"`)
	if end == -1 {
		return ""
	}
	return s[start : start+end]
}

func now() int64 {
	return time.Now().UnixMilli()
}
