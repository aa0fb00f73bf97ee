// Hash algorithm implementations for key identifiers.
//
// The _id field is a 16 hex character hash of the encoded key. Three
// algorithms are supported, selectable via Options.HashAlgorithm, carried
// over unchanged from the teacher's hash.go.
package store

import (
	"fmt"
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithm constants.
const (
	AlgXXHash3 = 1 // default, fastest
	AlgFNV1a   = 2 // no external dependencies
	AlgBlake2b = 3 // best distribution
)

// hashID generates a 16 hex character ID from encoded key bytes.
func hashID(key []byte, alg int) string {
	switch alg {
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write(key)
		return fmt.Sprintf("%016x", h.Sum64())
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write(key)
		return fmt.Sprintf("%016x", h.Sum(nil))
	case AlgXXHash3:
		fallthrough
	default:
		h := xxh3.Hash(key)
		return fmt.Sprintf("%016x", h)
	}
}
