// Binary-safe encodings for record fields.
//
// Keys and values are arbitrary bytes supplied by codecs (see codec.go) and
// must be embeddable in a single JSON line without escaping headaches or
// newlines appearing mid-record (the line format is newline-delimited).
// Ascii85 satisfies both: its alphabet ('!' through 'u', plus 'z') has no
// control characters or newlines. It does include '"' and '\\', which the
// JSON encoder escapes like any other string content.
//
// Values additionally get zstd compression above a small size threshold:
// below that threshold the zstd frame header costs more than it saves, and
// most indexed values (hashes, small numbers, short strings) never cross
// it. Keys are never compressed — they participate in ID derivation and
// equality checks on every read, so encode/decode must stay cheap, and
// keys are rarely large enough for compression to pay off.
package store

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the value size, in bytes, at or above which values
// are zstd-compressed before ascii85 encoding. Chosen generously above the
// zstd frame overhead (~13 bytes) so typical small scalar values never
// pay for a compressor they gain nothing from.
const compressThreshold = 64

// Shared encoder/decoder — both are documented as safe for concurrent use.
// Allocated once because zstd encoder/decoder construction is expensive
// (internal state tables). SpeedFastest favours the hot Set/Update path
// over the cold decompress-on-read path.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodeRaw ascii85-encodes bytes with no compression. Used for keys and
// other fields that must round-trip cheaply.
func encodeRaw(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := ascii85.NewEncoder(&buf)
	_, _ = enc.Write(data)
	_ = enc.Close()
	return buf.String()
}

// decodeRaw reverses encodeRaw.
func decodeRaw(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	dec := ascii85.NewDecoder(bytes.NewReader([]byte(encoded)))
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: ascii85: %w", ErrDecodeField, err)
	}
	return out, nil
}

// encodeValue compresses data of compressThreshold bytes or more, then ascii85-encodes
// it. A one-byte tag distinguishes compressed from raw payloads so
// decodeValue never has to guess.
func encodeValue(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) < compressThreshold {
		return "r" + encodeRaw(data)
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	return "z" + encodeRaw(compressed)
}

// decodeValue reverses encodeValue.
func decodeValue(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	if len(encoded) < 1 {
		return nil, ErrCorruptRecord
	}
	tag, body := encoded[0], encoded[1:]
	raw, err := decodeRaw(body)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'r':
		return raw, nil
	case 'z':
		out, err := zstdDecoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrDecodeField, err)
		}
		return out, nil
	default:
		return nil, ErrCorruptRecord
	}
}
